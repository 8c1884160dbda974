// README: Concurrency tests for accept and request creation (run with -race).
package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Peer-Ride/peer-ride-functions/internal/types"
)

// Two accepts racing on distinct pending requests of the same
// open trip: the transaction lets exactly one through and the trip ends up
// paired with that request's requester.
func TestConcurrentAcceptDistinctRequests(t *testing.T) {
	for round := 0; round < 50; round++ {
		store := NewMemoryStore()
		svc := newTestService(t, store, 5)
		tr := mustCreateTrip(t, svc, host)
		a := mustRequest(t, svc, requester, tr.ID)
		b := mustRequest(t, svc, other, tr.ID)

		ctx := context.Background()
		start := make(chan struct{})
		results := make(chan acceptOutcome, 2)
		var wg sync.WaitGroup
		for _, id := range []string{a.ID, b.ID} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				<-start
				_, err := svc.AcceptPairingRequest(ctx, host, AcceptCommand{RequestID: id})
				results <- acceptOutcome{id: id, err: err}
			}(id)
		}
		close(start)
		wg.Wait()
		close(results)

		var winner string
		success := 0
		for res := range results {
			if res.err == nil {
				success++
				winner = res.id
				continue
			}
			// the loser either saw the trip paired or its own request already declined
			if !errors.Is(res.err, ErrTripNotOpen) && !errors.Is(res.err, ErrRequestResolved) {
				t.Fatalf("round %d: unexpected error: %v", round, res.err)
			}
		}
		if success != 1 {
			t.Fatalf("round %d: expected exactly 1 success, got %d", round, success)
		}

		got, err := store.GetTrip(ctx, tr.ID)
		if err != nil {
			t.Fatalf("get trip: %v", err)
		}
		if got.Status != TripPaired || got.Guest == nil {
			t.Fatalf("round %d: trip not paired: %+v", round, got)
		}
		accepted, _ := store.GetPairingRequest(ctx, winner)
		if got.Guest.ID != accepted.RequesterID {
			t.Fatalf("round %d: guest %s does not match winner %s", round, got.Guest.ID, accepted.RequesterID)
		}
		assertSingleAccepted(t, store, tr.ID)
	}
}

func TestConcurrentAcceptSameRequest(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store, 5)
	tr := mustCreateTrip(t, svc, host)
	r := mustRequest(t, svc, requester, tr.ID)

	const attempts = 8
	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AcceptPairingRequest(ctx, host, AcceptCommand{RequestID: r.ID})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrRequestResolved) && !errors.Is(err, ErrTripNotOpen) && !errors.Is(err, ErrTxContention) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}
	assertSingleAccepted(t, store, tr.ID)
}

// Duplicate detection is a lookup before insert, so a burst of identical
// requests may create more than one pending request. The accept path still
// pairs the trip exactly once.
func TestConcurrentDuplicateRequestsStillPairOnce(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(t, store, 5)
	tr := mustCreateTrip(t, svc, host)

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.CreatePairingRequest(ctx, requester, CreatePairingRequestCommand{
				TripID:        tr.ID,
				ContactMethod: types.ContactChat,
			})
		}()
	}
	wg.Wait()

	pending, err := store.ListPairingRequests(ctx, tr.ID, RequestPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) == 0 {
		t.Fatal("expected at least one pending request")
	}

	var wins int
	for _, p := range pending {
		if _, err := svc.AcceptPairingRequest(ctx, host, AcceptCommand{RequestID: p.ID}); err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected one accept to win, got %d", wins)
	}
	assertSingleAccepted(t, store, tr.ID)
}

type acceptOutcome struct {
	id  string
	err error
}

func assertSingleAccepted(t *testing.T, store *MemoryStore, tripID string) {
	t.Helper()
	rs, err := store.ListPairingRequests(context.Background(), tripID, RequestAccepted)
	if err != nil {
		t.Fatalf("list accepted: %v", err)
	}
	if len(rs) != 1 {
		ids := make([]string, len(rs))
		for i, r := range rs {
			ids[i] = r.ID
		}
		t.Fatalf("expected 1 accepted request, got %d: %s", len(rs), fmt.Sprint(ids))
	}
}
