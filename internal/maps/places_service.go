// README: Google Place Details lookups used to fill in location display names.
package maps

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"googlemaps.github.io/maps"
)

var ErrNoName = errors.New("place has no display name")

// PlacesService handles interactions with Google Places API.
type PlacesService struct {
	client   *maps.Client
	language string

	mu    sync.RWMutex
	names map[string]string
}

// NewPlacesService creates a new PlacesService with the given API Key.
// Extra client options (a base URL for tests, rate limits) are passed through.
func NewPlacesService(apiKey string, opts ...maps.ClientOption) (*PlacesService, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client, language: "zh-TW", names: make(map[string]string)}, nil
}

// Resolve returns the display name of placeID, falling back to its formatted
// address. Successful lookups are cached for the life of the process.
func (s *PlacesService) Resolve(ctx context.Context, placeID string) (string, error) {
	s.mu.RLock()
	name, ok := s.names[placeID]
	s.mu.RUnlock()
	if ok {
		return name, nil
	}

	resp, err := s.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID:  placeID,
		Language: s.language,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskName,
			maps.PlaceDetailsFieldMaskFormattedAddress,
		},
	})
	if err != nil {
		return "", fmt.Errorf("place details %s: %w", placeID, err)
	}

	name = resp.Name
	if name == "" {
		name = resp.FormattedAddress
	}
	if name == "" {
		return "", ErrNoName
	}

	s.mu.Lock()
	s.names[placeID] = name
	s.mu.Unlock()
	return name, nil
}
