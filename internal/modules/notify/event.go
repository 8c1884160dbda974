// README: Notification events and the handler contract the watcher feeds.
package notify

import (
	"context"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

// PairingRequestUpdated is one observed write to a pairing request document.
// Before is nil when the previous state is unknown.
type PairingRequestUpdated struct {
	RequestID string
	Before    *trip.PairingRequest
	After     *trip.PairingRequest
}

// StatusChanged reports whether the write moved the request to a new status.
func (e PairingRequestUpdated) StatusChanged() bool {
	if e.After == nil {
		return false
	}
	var before trip.RequestStatus
	if e.Before != nil {
		before = e.Before.Status
	}
	return before != e.After.Status
}

// Handler consumes pairing request updates. Implementations must not return
// errors: notification is best effort and never affects the transition.
type Handler interface {
	Handle(ctx context.Context, ev PairingRequestUpdated)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev PairingRequestUpdated)

func (f HandlerFunc) Handle(ctx context.Context, ev PairingRequestUpdated) { f(ctx, ev) }
