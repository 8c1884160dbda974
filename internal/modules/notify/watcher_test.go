package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

func TestStatusTracker(t *testing.T) {
	s := newStatusTracker()
	req := func(st trip.RequestStatus) *trip.PairingRequest {
		return &trip.PairingRequest{ID: "r1", Status: st}
	}

	_, ok := s.observe(req(trip.RequestPending), true)
	assert.False(t, ok, "initial snapshot only seeds")

	_, ok = s.observe(req(trip.RequestPending), false)
	assert.False(t, ok, "write without status change")

	ev, ok := s.observe(req(trip.RequestAccepted), false)
	assert.True(t, ok)
	assert.Equal(t, trip.RequestPending, ev.Before.Status)
	assert.Equal(t, trip.RequestAccepted, ev.After.Status)

	_, ok = s.observe(req(trip.RequestAccepted), true)
	assert.False(t, ok, "re-added with the same status")

	s.forget("r1")
	ev, ok = s.observe(req(trip.RequestDeclined), false)
	assert.True(t, ok, "unknown previous state counts as a change")
	assert.Nil(t, ev.Before)
}

func TestStatusTracker_ReAddedAfterRestart(t *testing.T) {
	s := newStatusTracker()
	s.observe(&trip.PairingRequest{ID: "r1", Status: trip.RequestPending}, true)

	ev, ok := s.observe(&trip.PairingRequest{ID: "r1", Status: trip.RequestDeclined}, true)

	assert.True(t, ok)
	assert.Equal(t, trip.RequestPending, ev.Before.Status)
	assert.Equal(t, trip.RequestDeclined, ev.After.Status)
}

// scriptedSource plays one script per Listen call. Once the scripts run out
// it blocks until the context ends, or fails at once when failForever is set.
type scriptedSource struct {
	mu          sync.Mutex
	scripts     []func(emit func(requestChange)) error
	failForever bool
	calls       atomic.Int32
}

func (s *scriptedSource) Listen(ctx context.Context, emit func(requestChange)) error {
	s.calls.Add(1)
	s.mu.Lock()
	var script func(emit func(requestChange)) error
	if len(s.scripts) > 0 {
		script, s.scripts = s.scripts[0], s.scripts[1:]
	}
	s.mu.Unlock()

	if script != nil {
		return script(emit)
	}
	if s.failForever {
		return errors.New("stream reset")
	}
	<-ctx.Done()
	return nil
}

type fakeLease struct {
	granted  atomic.Bool
	renewOK  atomic.Bool
	acquires atomic.Int32
	renews   atomic.Int32
	releases atomic.Int32
}

func (l *fakeLease) Acquire(context.Context, string, time.Duration) (bool, error) {
	l.acquires.Add(1)
	return l.granted.Load(), nil
}

func (l *fakeLease) Renew(context.Context, string, time.Duration) (bool, error) {
	l.renews.Add(1)
	return l.renewOK.Load(), nil
}

func (l *fakeLease) Release(context.Context, string) error {
	l.releases.Add(1)
	return nil
}

func pending(id string) requestChange {
	return requestChange{kind: changeAdded, id: id, req: &trip.PairingRequest{ID: id, Status: trip.RequestPending}}
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func requireStopped(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_RestartReportsChangesMissedWhileDown(t *testing.T) {
	src := &scriptedSource{scripts: []func(emit func(requestChange)) error{
		func(emit func(requestChange)) error {
			emit(pending("r1"))
			emit(pending("r2"))
			return errors.New("stream reset")
		},
		func(emit func(requestChange)) error {
			emit(requestChange{kind: changeAdded, id: "r1", req: &trip.PairingRequest{ID: "r1", Status: trip.RequestAccepted}})
			emit(pending("r2"))
			emit(pending("r3"))
			return errors.New("stream reset")
		},
	}}
	events := make(chan PairingRequestUpdated, 8)
	h := HandlerFunc(func(_ context.Context, ev PairingRequestUpdated) { events <- ev })
	w := newWatcher(src, h, quietLog(), WithRestartBackoff(time.Millisecond, 5*time.Millisecond))

	cancel, done := runWatcher(t, w)

	select {
	case ev := <-events:
		assert.Equal(t, "r1", ev.RequestID)
		assert.Equal(t, trip.RequestPending, ev.Before.Status)
		assert.Equal(t, trip.RequestAccepted, ev.After.Status)
	case <-time.After(2 * time.Second):
		t.Fatal("no event after listener restart")
	}
	require.Eventually(t, func() bool { return src.calls.Load() >= 3 }, 2*time.Second, time.Millisecond)
	assert.Empty(t, events, "unchanged and new requests are not reported")

	requireStopped(t, cancel, done)
}

func TestWatcher_ListenerFailuresDoNotEndRun(t *testing.T) {
	src := &scriptedSource{failForever: true}
	w := newWatcher(src, HandlerFunc(func(context.Context, PairingRequestUpdated) {}), quietLog(),
		WithRestartBackoff(time.Millisecond, 2*time.Millisecond))

	cancel, done := runWatcher(t, w)

	require.Eventually(t, func() bool { return src.calls.Load() >= 5 }, 2*time.Second, time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("watcher returned early: %v", err)
	default:
	}
	requireStopped(t, cancel, done)
}

func TestWatcher_LeaseHeldElsewhere(t *testing.T) {
	src := &scriptedSource{}
	lease := &fakeLease{}
	w := newWatcher(src, HandlerFunc(func(context.Context, PairingRequestUpdated) {}), quietLog(),
		WithLease(lease, 15*time.Millisecond))

	cancel, done := runWatcher(t, w)

	require.Eventually(t, func() bool { return lease.acquires.Load() >= 3 }, 2*time.Second, time.Millisecond)
	assert.Zero(t, src.calls.Load(), "only the lease holder listens")
	requireStopped(t, cancel, done)
	assert.Zero(t, lease.releases.Load())
}

func TestWatcher_LeaseLostStopsListener(t *testing.T) {
	src := &scriptedSource{}
	lease := &fakeLease{}
	lease.granted.Store(true)
	w := newWatcher(src, HandlerFunc(func(context.Context, PairingRequestUpdated) {}), quietLog(),
		WithLease(lease, 30*time.Millisecond))

	cancel, done := runWatcher(t, w)

	require.Eventually(t, func() bool { return lease.releases.Load() >= 1 }, 2*time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, lease.renews.Load(), int32(1))
	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, 2*time.Second, time.Millisecond,
		"the lease is re-acquired after it is lost")
	requireStopped(t, cancel, done)
}

func TestWatcher_HoldsLeaseWhileRenewing(t *testing.T) {
	src := &scriptedSource{}
	lease := &fakeLease{}
	lease.granted.Store(true)
	lease.renewOK.Store(true)
	w := newWatcher(src, HandlerFunc(func(context.Context, PairingRequestUpdated) {}), quietLog(),
		WithLease(lease, 15*time.Millisecond))

	cancel, done := runWatcher(t, w)

	require.Eventually(t, func() bool { return lease.renews.Load() >= 3 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Zero(t, lease.releases.Load())

	requireStopped(t, cancel, done)
	assert.Equal(t, int32(1), lease.releases.Load(), "lease released on shutdown")
}
