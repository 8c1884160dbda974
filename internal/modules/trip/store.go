// README: Persistence contract for trips and pairing requests.
package trip

import (
	"context"
	"time"
)

// Store is the document store seen by the lifecycle core. FirestoreStore is the
// production implementation; MemoryStore backs tests and local runs.
type Store interface {
	CreateTrip(ctx context.Context, t *Trip) error
	GetTrip(ctx context.Context, id string) (*Trip, error)
	// CountActiveTrips counts the host's open/paired trips whose departure
	// window ends at or after now.
	CountActiveTrips(ctx context.Context, hostID string, now time.Time) (int, error)

	CreatePairingRequest(ctx context.Context, r *PairingRequest) error
	GetPairingRequest(ctx context.Context, id string) (*PairingRequest, error)
	// HasActiveRequest reports whether requesterID has a pending or accepted
	// request on tripID.
	HasActiveRequest(ctx context.Context, tripID, requesterID string) (bool, error)
	ListPairingRequests(ctx context.Context, tripID string, statuses ...RequestStatus) ([]*PairingRequest, error)

	// RunInTx runs fn inside one atomic read-then-write transaction. The store
	// re-runs fn when a document it read was committed by someone else first;
	// errors returned by fn abort without retry.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// DeclineRequests moves every listed request to declined in one
	// non-atomic bulk write and returns the joined per-document failures.
	DeclineRequests(ctx context.Context, ids []string) error
}

// Tx is the read-then-write view inside RunInTx. All reads must happen before
// the first write, as in Firestore.
type Tx interface {
	GetPairingRequest(id string) (*PairingRequest, error)
	GetTrip(id string) (*Trip, error)
	SetRequestStatus(id string, status RequestStatus) error
	PairTrip(id string, guest Guest) error
}

// EventRecorder receives committed transitions. Recording is best effort.
type EventRecorder interface {
	Record(ctx context.Context, events ...Event) error
}

// LocationResolver fills in display names for locations that arrive with
// only a place id.
type LocationResolver interface {
	Resolve(ctx context.Context, placeID string) (string, error)
}
