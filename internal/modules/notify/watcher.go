package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/sethvargo/go-retry"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

const watcherLeaseKey = "notify:watcher"

var errListenerClosed = errors.New("pairing request listener closed")

// Lease keeps the listener on a single replica. *infra.RedisLease implements it.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Renew(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type changeKind int

const (
	changeAdded changeKind = iota
	changeModified
	changeRemoved
)

// requestChange is one decoded document change. req is nil for removals.
type requestChange struct {
	kind changeKind
	id   string
	req  *trip.PairingRequest
}

// changeSource streams pairing request changes until ctx ends or the stream
// fails.
type changeSource interface {
	Listen(ctx context.Context, emit func(requestChange)) error
}

type firestoreSource struct {
	client *firestore.Client
	log    *slog.Logger
}

func (s firestoreSource) Listen(ctx context.Context, emit func(requestChange)) error {
	it := s.client.Collection(trip.RequestsCollection).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("pairing request listener: %w", err)
		}
		for _, ch := range snap.Changes {
			id := ch.Doc.Ref.ID
			if ch.Kind == firestore.DocumentRemoved {
				emit(requestChange{kind: changeRemoved, id: id})
				continue
			}
			r, err := trip.DecodePairingRequest(ch.Doc)
			if err != nil {
				s.log.Warn("notify watcher: decode failed", "request_id", id, "err", err)
				continue
			}
			kind := changeModified
			if ch.Kind == firestore.DocumentAdded {
				kind = changeAdded
			}
			emit(requestChange{kind: kind, id: id, req: r})
		}
	}
}

// statusTracker remembers the last observed state per request so a modified
// document can be reported with its previous status.
type statusTracker struct {
	mu   sync.Mutex
	last map[string]*trip.PairingRequest
}

func newStatusTracker() *statusTracker {
	return &statusTracker{last: make(map[string]*trip.PairingRequest)}
}

// observe records r and returns the update to deliver, if any. An added
// document the tracker has never seen only seeds it; one it already knows
// (a listener restart) is compared like a modification.
func (s *statusTracker) observe(r *trip.PairingRequest, added bool) (PairingRequestUpdated, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.last[r.ID]
	s.last[r.ID] = r
	if added && before == nil {
		return PairingRequestUpdated{}, false
	}
	ev := PairingRequestUpdated{RequestID: r.ID, Before: before, After: r}
	return ev, ev.StatusChanged()
}

func (s *statusTracker) forget(id string) {
	s.mu.Lock()
	delete(s.last, id)
	s.mu.Unlock()
}

// Watcher listens to the pairing request collection and feeds status changes
// to a Handler. It is the only caller of the notification path.
//
// With a Lease the listener runs only on the replica holding it. Changes
// written while no replica holds the lease are not notified.
type Watcher struct {
	source     changeSource
	handler    Handler
	lease      Lease
	leaseTTL   time.Duration
	backoff    time.Duration
	maxBackoff time.Duration
	log        *slog.Logger
}

type WatcherOption func(*Watcher)

func WithLease(l Lease, ttl time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.lease = l
		if ttl > 0 {
			w.leaseTTL = ttl
		}
	}
}

// WithRestartBackoff sets the delay before the first listener restart; later
// ones double up to limit.
func WithRestartBackoff(base, limit time.Duration) WatcherOption {
	return func(w *Watcher) {
		if base > 0 {
			w.backoff = base
		}
		if limit > 0 {
			w.maxBackoff = limit
		}
	}
}

func NewWatcher(client *firestore.Client, h Handler, log *slog.Logger, opts ...WatcherOption) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	return newWatcher(firestoreSource{client: client, log: log}, h, log, opts...)
}

func newWatcher(src changeSource, h Handler, log *slog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:     src,
		handler:    h,
		leaseTTL:   30 * time.Second,
		backoff:    time.Second,
		maxBackoff: time.Minute,
		log:        log,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Run blocks until ctx is cancelled. Listener failures are logged and the
// listener restarted; Run itself always returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	if w.lease == nil {
		w.listen(ctx)
		return nil
	}

	w.log.Info("notify watcher: waiting for lease", "key", watcherLeaseKey)
	for ctx.Err() == nil {
		ok, err := w.lease.Acquire(ctx, watcherLeaseKey, w.leaseTTL)
		switch {
		case err != nil:
			w.log.Warn("notify watcher: lease unavailable", "key", watcherLeaseKey, "err", err)
		case ok:
			w.lead(ctx)
		}
		if !sleepCtx(ctx, w.leaseTTL/3) {
			break
		}
	}
	return nil
}

// lead runs the listener while the lease is held, renewing it every third of
// its TTL. It returns when ctx ends or the lease is lost.
func (w *Watcher) lead(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		defer cancel()
		w.renew(ctx)
	}()

	w.log.Info("notify watcher: lease acquired", "key", watcherLeaseKey)
	w.listen(ctx)
	cancel()
	<-renewed

	rctx, rcancel := context.WithTimeout(context.WithoutCancel(parent), 5*time.Second)
	defer rcancel()
	if err := w.lease.Release(rctx, watcherLeaseKey); err != nil {
		w.log.Warn("notify watcher: lease release failed", "key", watcherLeaseKey, "err", err)
	}
}

func (w *Watcher) renew(ctx context.Context) {
	t := time.NewTicker(w.leaseTTL / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		ok, err := w.lease.Renew(ctx, watcherLeaseKey, w.leaseTTL)
		if ctx.Err() != nil {
			return
		}
		if err != nil || !ok {
			w.log.Warn("notify watcher: lease lost", "key", watcherLeaseKey, "err", err)
			return
		}
	}
}

// listen runs the source until ctx ends, restarting it with exponential
// backoff after each failure. The tracker lives for the whole call so a
// restart can report changes made while the stream was down.
func (w *Watcher) listen(ctx context.Context) {
	tracker := newStatusTracker()
	b := retry.WithCappedDuration(w.maxBackoff, retry.NewExponential(w.backoff))
	_ = retry.Do(ctx, b, func(ctx context.Context) error {
		err := w.source.Listen(ctx, func(ch requestChange) { w.apply(ctx, tracker, ch) })
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errListenerClosed
		}
		w.log.Warn("notify watcher: listener failed, restarting", "err", err)
		return retry.RetryableError(err)
	})
}

func (w *Watcher) apply(ctx context.Context, tracker *statusTracker, ch requestChange) {
	if ch.kind == changeRemoved {
		tracker.forget(ch.id)
		return
	}
	ev, ok := tracker.observe(ch.req, ch.kind == changeAdded)
	if !ok {
		return
	}
	w.handler.Handle(ctx, ev)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
