// README: Signup allow-list: email domains read from config/emailDomains with a short client-side cache.
package signup

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
)

const (
	ConfigCollection = "config"
	DomainsDocument  = "emailDomains"
)

var (
	ErrConfigMissing   = apperr.FailedPrecondition("signup is not configured")
	ErrConfigMalformed = apperr.FailedPrecondition("signup configuration is malformed")
	ErrNoDomains       = apperr.FailedPrecondition("no email domains are allowed")
)

// DomainSource returns the raw configured domains.
type DomainSource interface {
	Domains(ctx context.Context) ([]string, error)
}

type FirestoreSource struct {
	client *firestore.Client
}

func NewFirestoreSource(client *firestore.Client) *FirestoreSource {
	return &FirestoreSource{client: client}
}

func (s *FirestoreSource) Domains(ctx context.Context) ([]string, error) {
	snap, err := s.client.Collection(ConfigCollection).Doc(DomainsDocument).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrConfigMissing
		}
		return nil, fmt.Errorf("read %s/%s: %w", ConfigCollection, DomainsDocument, err)
	}
	raw, err := snap.DataAt("domains")
	if err != nil {
		return nil, ErrConfigMalformed
	}
	return parseDomains(raw)
}

// parseDomains accepts only a list whose every element is a string.
func parseDomains(raw any) ([]string, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, ErrConfigMalformed
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, ErrConfigMalformed
		}
		out = append(out, s)
	}
	return out, nil
}
