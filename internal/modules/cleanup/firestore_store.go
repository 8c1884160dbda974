package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/notify"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

// MessagesCollection is the chat subcollection under each trip.
const MessagesCollection = "messages"

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) ExpiredTripIDs(ctx context.Context, status trip.TripStatus, before time.Time) ([]string, error) {
	q := s.client.Collection(trip.TripsCollection).Where("departureEnd", "<", before)
	if status != "" {
		q = q.Where("status", "==", string(status))
	}
	refs, err := refsOf(ctx, q)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *FirestoreStore) DeleteTrip(ctx context.Context, tripID string) (TripDeletion, error) {
	tripRef := s.client.Collection(trip.TripsCollection).Doc(tripID)

	requests, err := refsOf(ctx, s.client.Collection(trip.RequestsCollection).Where("tripId", "==", tripID))
	if err != nil {
		return TripDeletion{}, fmt.Errorf("list requests of %s: %w", tripID, err)
	}
	messages, err := tripRef.Collection(MessagesCollection).DocumentRefs(ctx).GetAll()
	if err != nil {
		return TripDeletion{}, fmt.Errorf("list messages of %s: %w", tripID, err)
	}

	refs := make([]*firestore.DocumentRef, 0, len(requests)+len(messages)+1)
	refs = append(refs, requests...)
	refs = append(refs, messages...)
	refs = append(refs, tripRef)
	if err := s.bulkDelete(ctx, refs); err != nil {
		return TripDeletion{}, fmt.Errorf("delete trip %s: %w", tripID, err)
	}
	return TripDeletion{Requests: len(requests), Messages: len(messages)}, nil
}

func (s *FirestoreStore) DeleteMailBefore(ctx context.Context, before time.Time) (int, error) {
	refs, err := refsOf(ctx, s.client.Collection(notify.MailCollection).Where("createdAt", "<", before))
	if err != nil {
		return 0, fmt.Errorf("list expired mail: %w", err)
	}
	if err := s.bulkDelete(ctx, refs); err != nil {
		return 0, fmt.Errorf("delete expired mail: %w", err)
	}
	return len(refs), nil
}

func (s *FirestoreStore) bulkDelete(ctx context.Context, refs []*firestore.DocumentRef) error {
	if len(refs) == 0 {
		return nil
	}
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	var errs []error
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func refsOf(ctx context.Context, q firestore.Query) ([]*firestore.DocumentRef, error) {
	snaps, err := q.Select().Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	refs := make([]*firestore.DocumentRef, len(snaps))
	for i, snap := range snaps {
		refs[i] = snap.Ref
	}
	return refs, nil
}
