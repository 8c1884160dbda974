// README: Cleanup sweeper: deletes departed trips with their requests and chat, and expired mail.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

const (
	// OpenTripGrace is how long an unpaired trip survives its departure window.
	OpenTripGrace = 24 * time.Hour
	// AnyTripGrace applies to trips of every status.
	AnyTripGrace  = 72 * time.Hour
	MailRetention = 7 * 24 * time.Hour
)

// ErrPartialSweep reports that at least one batch failed. The Report returned
// alongside it still counts everything that was deleted.
var ErrPartialSweep = errors.New("cleanup: sweep finished with failures")

// Cutoffs are the three instants a sweep compares against.
type Cutoffs struct {
	OpenTrips time.Time
	AnyTrips  time.Time
	Mail      time.Time
}

func CutoffsAt(now time.Time) Cutoffs {
	return Cutoffs{
		OpenTrips: now.Add(-OpenTripGrace),
		AnyTrips:  now.Add(-AnyTripGrace),
		Mail:      now.Add(-MailRetention),
	}
}

// TripDeletion counts what one trip batch removed.
type TripDeletion struct {
	Requests int
	Messages int
}

// Store is the persistence the sweeper needs.
type Store interface {
	// ExpiredTripIDs lists trips whose departureEnd is before the cutoff,
	// restricted to status when it is non-empty.
	ExpiredTripIDs(ctx context.Context, status trip.TripStatus, before time.Time) ([]string, error)
	// DeleteTrip removes the trip, its pairing requests and its messages as
	// one batch.
	DeleteTrip(ctx context.Context, tripID string) (TripDeletion, error)
	DeleteMailBefore(ctx context.Context, before time.Time) (int, error)
}

type Report struct {
	Cutoffs         Cutoffs
	TripsSelected   int
	TripsDeleted    int
	TripsFailed     int
	RequestsDeleted int
	MessagesDeleted int
	MailDeleted     int
	MailFailed      bool
}

func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("trips_selected", r.TripsSelected),
		slog.Int("trips_deleted", r.TripsDeleted),
		slog.Int("trips_failed", r.TripsFailed),
		slog.Int("requests_deleted", r.RequestsDeleted),
		slog.Int("messages_deleted", r.MessagesDeleted),
		slog.Int("mail_deleted", r.MailDeleted),
		slog.Bool("mail_failed", r.MailFailed),
	)
}

type Sweeper struct {
	store Store
	log   *slog.Logger
}

func NewSweeper(store Store, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{store: store, log: log}
}

// Sweep runs one pass. Trip selection failures abort the pass; a failed trip
// batch or mail batch is logged and counted and the pass continues.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (Report, error) {
	rep := Report{Cutoffs: CutoffsAt(now)}

	open, err := s.store.ExpiredTripIDs(ctx, trip.TripOpen, rep.Cutoffs.OpenTrips)
	if err != nil {
		return rep, fmt.Errorf("select expired open trips: %w", err)
	}
	stale, err := s.store.ExpiredTripIDs(ctx, "", rep.Cutoffs.AnyTrips)
	if err != nil {
		return rep, fmt.Errorf("select stale trips: %w", err)
	}

	ids := dedupe(open, stale)
	rep.TripsSelected = len(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		del, err := s.store.DeleteTrip(ctx, id)
		rep.RequestsDeleted += del.Requests
		rep.MessagesDeleted += del.Messages
		if err != nil {
			rep.TripsFailed++
			s.log.Error("cleanup: trip batch failed", "trip_id", id, "err", err)
			continue
		}
		rep.TripsDeleted++
	}

	n, err := s.store.DeleteMailBefore(ctx, rep.Cutoffs.Mail)
	rep.MailDeleted = n
	if err != nil {
		rep.MailFailed = true
		s.log.Error("cleanup: mail batch failed", "err", err)
	}

	s.log.Info("cleanup: sweep finished", "report", rep)
	if rep.TripsFailed > 0 || rep.MailFailed {
		return rep, ErrPartialSweep
	}
	return rep, nil
}

func dedupe(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, id := range l {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
