// README: Trip store backed by Cloud Firestore (trips, pairingRequests collections).
package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	TripsCollection    = "trips"
	RequestsCollection = "pairingRequests"
)

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) trips() *firestore.CollectionRef {
	return s.client.Collection(TripsCollection)
}

func (s *FirestoreStore) requests() *firestore.CollectionRef {
	return s.client.Collection(RequestsCollection)
}

func (s *FirestoreStore) CreateTrip(ctx context.Context, t *Trip) error {
	ref := s.trips().NewDoc()
	wr, err := ref.Create(ctx, t)
	if err != nil {
		return err
	}
	t.ID = ref.ID
	t.CreatedAt, t.UpdatedAt = wr.UpdateTime, wr.UpdateTime
	return nil
}

func (s *FirestoreStore) GetTrip(ctx context.Context, id string) (*Trip, error) {
	snap, err := s.trips().Doc(id).Get(ctx)
	if err != nil {
		return nil, notFoundAs(err, ErrTripNotFound)
	}
	return decodeTrip(snap)
}

func (s *FirestoreStore) CountActiveTrips(ctx context.Context, hostID string, now time.Time) (int, error) {
	snaps, err := s.trips().
		Where("hostId", "==", hostID).
		Where("status", "in", []string{string(TripOpen), string(TripPaired)}).
		Where("departureEnd", ">=", now).
		Select().
		Documents(ctx).GetAll()
	if err != nil {
		return 0, err
	}
	return len(snaps), nil
}

func (s *FirestoreStore) CreatePairingRequest(ctx context.Context, r *PairingRequest) error {
	ref := s.requests().NewDoc()
	wr, err := ref.Create(ctx, r)
	if err != nil {
		return err
	}
	r.ID = ref.ID
	r.CreatedAt, r.UpdatedAt = wr.UpdateTime, wr.UpdateTime
	return nil
}

func (s *FirestoreStore) GetPairingRequest(ctx context.Context, id string) (*PairingRequest, error) {
	snap, err := s.requests().Doc(id).Get(ctx)
	if err != nil {
		return nil, notFoundAs(err, ErrRequestNotFound)
	}
	return DecodePairingRequest(snap)
}

func (s *FirestoreStore) HasActiveRequest(ctx context.Context, tripID, requesterID string) (bool, error) {
	snaps, err := s.requests().
		Where("tripId", "==", tripID).
		Where("requesterId", "==", requesterID).
		Where("status", "in", []string{string(RequestPending), string(RequestAccepted)}).
		Limit(1).
		Select().
		Documents(ctx).GetAll()
	if err != nil {
		return false, err
	}
	return len(snaps) > 0, nil
}

func (s *FirestoreStore) ListPairingRequests(ctx context.Context, tripID string, statuses ...RequestStatus) ([]*PairingRequest, error) {
	q := s.requests().Where("tripId", "==", tripID)
	if len(statuses) == 1 {
		q = q.Where("status", "==", string(statuses[0]))
	} else if len(statuses) > 1 {
		in := make([]string, len(statuses))
		for i, st := range statuses {
			in[i] = string(st)
		}
		q = q.Where("status", "in", in)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]*PairingRequest, 0, len(snaps))
	for _, snap := range snaps {
		r, err := DecodePairingRequest(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *FirestoreStore) DeclineRequests(ctx context.Context, ids []string) error {
	bw := s.client.BulkWriter(ctx)
	jobs := make(map[string]*firestore.BulkWriterJob, len(ids))
	var errs []error
	for _, id := range ids {
		job, err := bw.Update(s.requests().Doc(id), []firestore.Update{
			{Path: "status", Value: string(RequestDeclined)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("decline %s: %w", id, err))
			continue
		}
		jobs[id] = job
	}
	bw.End()
	for id, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, fmt.Errorf("decline %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// RunInTx relies on Firestore's optimistic transactions: a commit that
// conflicts with a write to any document read in the attempt is aborted and
// fn is re-run against fresh reads.
func (s *FirestoreStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: s, tx: ftx})
	})
}

type firestoreTx struct {
	store *FirestoreStore
	tx    *firestore.Transaction
}

func (t *firestoreTx) GetPairingRequest(id string) (*PairingRequest, error) {
	snap, err := t.tx.Get(t.store.requests().Doc(id))
	if err != nil {
		return nil, notFoundAs(err, ErrRequestNotFound)
	}
	return DecodePairingRequest(snap)
}

func (t *firestoreTx) GetTrip(id string) (*Trip, error) {
	snap, err := t.tx.Get(t.store.trips().Doc(id))
	if err != nil {
		return nil, notFoundAs(err, ErrTripNotFound)
	}
	return decodeTrip(snap)
}

func (t *firestoreTx) SetRequestStatus(id string, st RequestStatus) error {
	return t.tx.Update(t.store.requests().Doc(id), []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func (t *firestoreTx) PairTrip(id string, guest Guest) error {
	return t.tx.Update(t.store.trips().Doc(id), []firestore.Update{
		{Path: "status", Value: string(TripPaired)},
		{Path: "guest", Value: guest},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
}

func decodeTrip(snap *firestore.DocumentSnapshot) (*Trip, error) {
	var t Trip
	if err := snap.DataTo(&t); err != nil {
		return nil, fmt.Errorf("decode trip %s: %w", snap.Ref.ID, err)
	}
	t.ID = snap.Ref.ID
	return &t, nil
}

// DecodePairingRequest reads a pairingRequests document.
func DecodePairingRequest(snap *firestore.DocumentSnapshot) (*PairingRequest, error) {
	var r PairingRequest
	if err := snap.DataTo(&r); err != nil {
		return nil, fmt.Errorf("decode pairing request %s: %w", snap.Ref.ID, err)
	}
	r.ID = snap.Ref.ID
	return &r, nil
}

func notFoundAs(err error, sentinel error) error {
	if status.Code(err) == codes.NotFound {
		return sentinel
	}
	return err
}
