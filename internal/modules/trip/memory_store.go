// README: In-memory Store with optimistic, version-checked transactions (tests, local runs).
package trip

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
)

// ErrTxContention is returned when a transaction keeps losing commit races.
var ErrTxContention = apperr.New(codes.Aborted, "too much contention on these documents")

const memMaxAttempts = 5

// MemoryStore keeps documents in maps. Transactions record the version of
// every document they read and commit only if none changed in between,
// otherwise they re-run, mirroring Firestore's optimistic concurrency.
type MemoryStore struct {
	mu       sync.Mutex
	trips    map[string]Trip
	requests map[string]PairingRequest
	versions map[string]int64
	now      func() time.Time

	// DeclineErr, when set, makes DeclineRequests fail without writing.
	DeclineErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trips:    make(map[string]Trip),
		requests: make(map[string]PairingRequest),
		versions: make(map[string]int64),
		now:      time.Now,
	}
}

func tripKey(id string) string    { return "trips/" + id }
func requestKey(id string) string { return "pairingRequests/" + id }

func (m *MemoryStore) CreateTrip(_ context.Context, t *Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := m.now()
	t.CreatedAt, t.UpdatedAt = now, now
	m.trips[t.ID] = cloneTrip(*t)
	m.versions[tripKey(t.ID)]++
	return nil
}

// PutTrip stores t as-is, overwriting any existing document.
func (m *MemoryStore) PutTrip(t Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[t.ID] = cloneTrip(t)
	m.versions[tripKey(t.ID)]++
}

func (m *MemoryStore) GetTrip(_ context.Context, id string) (*Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	c := cloneTrip(t)
	return &c, nil
}

func (m *MemoryStore) CountActiveTrips(_ context.Context, hostID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.trips {
		if t.HostID == hostID && contains(ActiveTripStatuses, t.Status) && !t.DepartureEnd.Before(now) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreatePairingRequest(_ context.Context, r *PairingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := m.now()
	r.CreatedAt, r.UpdatedAt = now, now
	m.requests[r.ID] = *r
	m.versions[requestKey(r.ID)]++
	return nil
}

// PutPairingRequest stores r as-is, overwriting any existing document.
func (m *MemoryStore) PutPairingRequest(r PairingRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	m.versions[requestKey(r.ID)]++
}

func (m *MemoryStore) GetPairingRequest(_ context.Context, id string) (*PairingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return &r, nil
}

func (m *MemoryStore) HasActiveRequest(_ context.Context, tripID, requesterID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.TripID == tripID && r.RequesterID == requesterID && contains(ActiveRequestStatuses, r.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ListPairingRequests(_ context.Context, tripID string, statuses ...RequestStatus) ([]*PairingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*PairingRequest
	for _, r := range m.requests {
		if r.TripID != tripID {
			continue
		}
		if len(statuses) > 0 && !contains(statuses, r.Status) {
			continue
		}
		c := r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) DeclineRequests(_ context.Context, ids []string) error {
	if m.DeclineErr != nil {
		return m.DeclineErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	now := m.now()
	for _, id := range ids {
		r, ok := m.requests[id]
		if !ok {
			errs = append(errs, fmt.Errorf("decline %s: %w", id, ErrRequestNotFound))
			continue
		}
		r.Status = RequestDeclined
		r.UpdatedAt = now
		m.requests[id] = r
		m.versions[requestKey(id)]++
	}
	return errors.Join(errs...)
}

func (m *MemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	for attempt := 0; attempt < memMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{m: m, reads: make(map[string]int64)}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if tx.commit() {
			return nil
		}
	}
	return ErrTxContention
}

type memTx struct {
	m      *MemoryStore
	reads  map[string]int64
	writes []func(now time.Time)
	keys   []string
}

var errReadAfterWrite = errors.New("transaction reads must come before writes")

func (tx *memTx) GetPairingRequest(id string) (*PairingRequest, error) {
	if len(tx.writes) > 0 {
		return nil, errReadAfterWrite
	}
	tx.m.mu.Lock()
	defer tx.m.mu.Unlock()
	tx.reads[requestKey(id)] = tx.m.versions[requestKey(id)]
	r, ok := tx.m.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return &r, nil
}

func (tx *memTx) GetTrip(id string) (*Trip, error) {
	if len(tx.writes) > 0 {
		return nil, errReadAfterWrite
	}
	tx.m.mu.Lock()
	defer tx.m.mu.Unlock()
	tx.reads[tripKey(id)] = tx.m.versions[tripKey(id)]
	t, ok := tx.m.trips[id]
	if !ok {
		return nil, ErrTripNotFound
	}
	c := cloneTrip(t)
	return &c, nil
}

func (tx *memTx) SetRequestStatus(id string, status RequestStatus) error {
	tx.keys = append(tx.keys, requestKey(id))
	tx.writes = append(tx.writes, func(now time.Time) {
		r, ok := tx.m.requests[id]
		if !ok {
			return
		}
		r.Status = status
		r.UpdatedAt = now
		tx.m.requests[id] = r
	})
	return nil
}

func (tx *memTx) PairTrip(id string, guest Guest) error {
	tx.keys = append(tx.keys, tripKey(id))
	tx.writes = append(tx.writes, func(now time.Time) {
		t, ok := tx.m.trips[id]
		if !ok {
			return
		}
		g := guest
		t.Status = TripPaired
		t.Guest = &g
		t.UpdatedAt = now
		tx.m.trips[id] = t
	})
	return nil
}

// commit applies the buffered writes if every document read is unchanged.
func (tx *memTx) commit() bool {
	// Give competing transactions a chance to interleave between read and commit.
	runtime.Gosched()

	tx.m.mu.Lock()
	defer tx.m.mu.Unlock()
	for key, v := range tx.reads {
		if tx.m.versions[key] != v {
			return false
		}
	}
	now := tx.m.now()
	for _, w := range tx.writes {
		w(now)
	}
	for _, key := range tx.keys {
		tx.m.versions[key]++
	}
	return true
}

func cloneTrip(t Trip) Trip {
	if t.Guest != nil {
		g := *t.Guest
		t.Guest = &g
	}
	return t
}
