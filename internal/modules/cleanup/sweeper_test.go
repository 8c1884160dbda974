package cleanup_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/cleanup"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

var testNow = time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

type memTrip struct {
	status       trip.TripStatus
	departureEnd time.Time
	requests     int
	messages     int
}

// memStore is an in-memory cleanup.Store.
type memStore struct {
	mu      sync.Mutex
	trips   map[string]memTrip
	mail    map[string]time.Time
	failing map[string]bool
	mailErr error
}

func newMemStore() *memStore {
	return &memStore{
		trips:   map[string]memTrip{},
		mail:    map[string]time.Time{},
		failing: map[string]bool{},
	}
}

func (m *memStore) ExpiredTripIDs(_ context.Context, status trip.TripStatus, before time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, t := range m.trips {
		if status != "" && t.status != status {
			continue
		}
		if t.departureEnd.Before(before) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) DeleteTrip(_ context.Context, id string) (cleanup.TripDeletion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing[id] {
		return cleanup.TripDeletion{}, errors.New("commit failed")
	}
	t, ok := m.trips[id]
	if !ok {
		return cleanup.TripDeletion{}, nil
	}
	delete(m.trips, id)
	return cleanup.TripDeletion{Requests: t.requests, Messages: t.messages}, nil
}

func (m *memStore) DeleteMailBefore(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mailErr != nil {
		return 0, m.mailErr
	}
	n := 0
	for id, at := range m.mail {
		if at.Before(before) {
			delete(m.mail, id)
			n++
		}
	}
	return n, nil
}

func quietSweeper(store cleanup.Store) *cleanup.Sweeper {
	return cleanup.NewSweeper(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSweep_SelectsByCutoff(t *testing.T) {
	store := newMemStore()
	store.trips["open-2d"] = memTrip{status: trip.TripOpen, departureEnd: testNow.Add(-48 * time.Hour), requests: 2, messages: 3}
	store.trips["open-12h"] = memTrip{status: trip.TripOpen, departureEnd: testNow.Add(-12 * time.Hour)}
	store.trips["paired-2d"] = memTrip{status: trip.TripPaired, departureEnd: testNow.Add(-48 * time.Hour)}
	store.trips["paired-4d"] = memTrip{status: trip.TripPaired, departureEnd: testNow.Add(-96 * time.Hour), requests: 1}
	store.trips["open-5d"] = memTrip{status: trip.TripOpen, departureEnd: testNow.Add(-120 * time.Hour)}
	store.mail["old"] = testNow.Add(-8 * 24 * time.Hour)
	store.mail["fresh"] = testNow.Add(-24 * time.Hour)

	rep, err := quietSweeper(store).Sweep(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.TripsSelected, "open-5d matches both cutoffs but is counted once")
	assert.Equal(t, 3, rep.TripsDeleted)
	assert.Equal(t, 3, rep.RequestsDeleted)
	assert.Equal(t, 3, rep.MessagesDeleted)
	assert.Equal(t, 1, rep.MailDeleted)

	assert.Contains(t, store.trips, "open-12h")
	assert.Contains(t, store.trips, "paired-2d")
	assert.NotContains(t, store.trips, "open-2d")
	assert.Contains(t, store.mail, "fresh")
}

func TestSweep_FailedBatchDoesNotStopOthers(t *testing.T) {
	store := newMemStore()
	store.trips["a"] = memTrip{status: trip.TripOpen, departureEnd: testNow.Add(-48 * time.Hour)}
	store.trips["b"] = memTrip{status: trip.TripOpen, departureEnd: testNow.Add(-48 * time.Hour)}
	store.trips["c"] = memTrip{status: trip.TripOpen, departureEnd: testNow.Add(-48 * time.Hour)}
	store.failing["b"] = true
	store.mail["old"] = testNow.Add(-10 * 24 * time.Hour)

	rep, err := quietSweeper(store).Sweep(context.Background(), testNow)
	require.ErrorIs(t, err, cleanup.ErrPartialSweep)

	assert.Equal(t, 2, rep.TripsDeleted)
	assert.Equal(t, 1, rep.TripsFailed)
	assert.Equal(t, 1, rep.MailDeleted)
	assert.Equal(t, []string{"b"}, keys(store.trips))
}

func TestSweep_MailFailureIsReported(t *testing.T) {
	store := newMemStore()
	store.mailErr = errors.New("deadline exceeded")

	rep, err := quietSweeper(store).Sweep(context.Background(), testNow)
	require.ErrorIs(t, err, cleanup.ErrPartialSweep)
	assert.True(t, rep.MailFailed)
}

func TestCutoffsAt(t *testing.T) {
	c := cleanup.CutoffsAt(testNow)
	assert.Equal(t, testNow.Add(-24*time.Hour), c.OpenTrips)
	assert.Equal(t, testNow.Add(-72*time.Hour), c.AnyTrips)
	assert.Equal(t, testNow.Add(-7*24*time.Hour), c.Mail)
}

func keys(m map[string]memTrip) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
