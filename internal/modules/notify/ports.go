package notify

import (
	"context"
	"time"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

// Recipient is what the trigger needs to reach one user.
type Recipient struct {
	UID      string
	Email    string
	Nickname string
	FCMToken string
}

// Mail is one queued document for the external mail relay.
type Mail struct {
	To        string    `firestore:"to"`
	Message   Message   `firestore:"message"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

// TripReader is the slice of the trip store the trigger reads.
type TripReader interface {
	GetTrip(ctx context.Context, id string) (*trip.Trip, error)
}

// Directory resolves a uid to contact details.
type Directory interface {
	Lookup(ctx context.Context, uid string) (Recipient, error)
}

// MailQueue appends mail documents for the relay.
type MailQueue interface {
	Enqueue(ctx context.Context, m Mail) error
}

// Pusher sends a device notification.
type Pusher interface {
	Push(ctx context.Context, deviceToken string, n Push) error
}

// Push is a short device notification tied to a trip.
type Push struct {
	Title  string
	Body   string
	TripID string
}
