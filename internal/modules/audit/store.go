// README: Postgres audit log of committed trip and pairing request transitions.
package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

var _ trip.EventRecorder = (*Store)(nil)

// Record appends events in one round trip.
func (s *Store) Record(ctx context.Context, events ...trip.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO pairing_events (
				trip_id, request_id, entity, from_status, to_status, actor_id, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.TripID,
			nullable(e.RequestID),
			e.Entity,
			e.FromStatus,
			e.ToStatus,
			nullable(e.ActorID),
			e.CreatedAt,
		)
	}
	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("append pairing events: %w", err)
	}
	return nil
}

// ListByTrip returns a trip's events oldest first.
func (s *Store) ListByTrip(ctx context.Context, tripID string) ([]trip.Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT trip_id, COALESCE(request_id, ''), entity, from_status, to_status,
		       COALESCE(actor_id, ''), created_at
		FROM pairing_events
		WHERE trip_id = $1
		ORDER BY created_at, id`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trip.Event
	for rows.Next() {
		var e trip.Event
		if err := rows.Scan(&e.TripID, &e.RequestID, &e.Entity, &e.FromStatus, &e.ToStatus, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
