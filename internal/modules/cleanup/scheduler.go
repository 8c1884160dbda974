package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/Peer-Ride/peer-ride-functions/internal/config"
)

// Sweeps runs one cleanup pass. *Sweeper implements it.
type Sweeps interface {
	Sweep(ctx context.Context, now time.Time) (Report, error)
}

// Scheduler fires the sweep once a day at a fixed local hour.
type Scheduler struct {
	sweeper    Sweeps
	lease      Lease
	loc        *time.Location
	hour       int
	maxRetries uint64
	leaseTTL   time.Duration
	backoff    time.Duration
	now        func() time.Time
	log        *slog.Logger
}

type SchedulerOption func(*Scheduler)

func WithLease(l Lease) SchedulerOption {
	return func(s *Scheduler) { s.lease = l }
}

// WithBackoff sets the first retry delay; later ones double.
func WithBackoff(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.backoff = d }
}

func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = l }
}

func NewScheduler(sw Sweeps, cfg config.CleanupConfig, opts ...SchedulerOption) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		sweeper:    sw,
		lease:      NoLease{},
		loc:        loc,
		hour:       cfg.Hour,
		maxRetries: cfg.MaxRetries,
		leaseTTL:   cfg.LeaseTTL,
		backoff:    2 * time.Second,
		now:        time.Now,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Next returns the first scheduled instant strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	local := t.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, 0, 0, 0, s.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.hour, 0, 0, 0, s.loc)
	}
	return next
}

// Run blocks until ctx is cancelled, sweeping at each scheduled instant.
func (s *Scheduler) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		now := s.now()
		next := s.Next(now)
		s.log.Info("cleanup: next sweep scheduled", "at", next)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("cleanup: sweep gave up", "err", err)
		}
	}
	return nil
}

// RunOnce takes today's lease and sweeps, retrying failed passes with
// exponential backoff. A lease held elsewhere is not an error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	key := leaseKey(s.now().In(s.loc))
	ok, err := s.lease.Acquire(ctx, key, s.leaseTTL)
	switch {
	case err != nil:
		// proceed without the lease
		s.log.Warn("cleanup: lease unavailable, sweeping unguarded", "key", key, "err", err)
	case !ok:
		s.log.Info("cleanup: another replica holds the lease", "key", key)
		return nil
	}

	attempt := 0
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		_, err := s.sweeper.Sweep(ctx, s.now())
		if err != nil {
			s.log.Warn("cleanup: sweep attempt failed", "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
