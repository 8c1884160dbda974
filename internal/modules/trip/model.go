// README: Trip and pairing-request aggregates with their status machines.
package trip

import (
	"time"

	"github.com/Peer-Ride/peer-ride-functions/internal/types"
)

type TripStatus string

const (
	TripOpen   TripStatus = "open"
	TripPaired TripStatus = "paired"
)

type RequestStatus string

const (
	RequestNone     RequestStatus = ""
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// ActiveTripStatuses count against a host's trip cap.
var ActiveTripStatuses = []TripStatus{TripOpen, TripPaired}

// ActiveRequestStatuses block a requester from asking the same trip again.
var ActiveRequestStatuses = []RequestStatus{RequestPending, RequestAccepted}

// Guest is the accepted requester, copied onto the trip at accept time.
type Guest struct {
	ID            string              `json:"id" firestore:"id"`
	Nickname      string              `json:"nickname" firestore:"nickname"`
	Luggage       types.Luggage       `json:"luggage" firestore:"luggage"`
	Note          string              `json:"note" firestore:"note"`
	ContactMethod types.ContactMethod `json:"contactMethod" firestore:"contactMethod"`
	ContactValue  string              `json:"contactValue" firestore:"contactValue"`
}

type Trip struct {
	ID                string              `json:"id" firestore:"-"`
	HostID            string              `json:"hostId" firestore:"hostId"`
	HostNickname      string              `json:"hostNickname" firestore:"hostNickname"`
	Origin            types.Location      `json:"origin" firestore:"origin"`
	Destination       types.Location      `json:"destination" firestore:"destination"`
	DepartureStart    time.Time           `json:"departureStart" firestore:"departureStart"`
	DepartureEnd      time.Time           `json:"departureEnd" firestore:"departureEnd"`
	Luggage           types.Luggage       `json:"luggage" firestore:"luggage"`
	HostContactMethod types.ContactMethod `json:"hostContactMethod" firestore:"hostContactMethod"`
	HostContactValue  string              `json:"hostContactValue" firestore:"hostContactValue"`
	Status            TripStatus          `json:"status" firestore:"status"`
	Guest             *Guest              `json:"guest" firestore:"guest"`
	CreatedAt         time.Time           `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt         time.Time           `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// Consistent reports whether the guest/status pairing holds:
// a trip carries a guest exactly when it is paired.
func (t *Trip) Consistent() bool {
	return (t.Status == TripPaired) == (t.Guest != nil)
}

// Participant reports whether uid is the trip's host or its paired guest.
func (t *Trip) Participant(uid string) bool {
	return uid != "" && (uid == t.HostID || (t.Guest != nil && t.Guest.ID == uid))
}

// PublicView is t with contact details stripped. The guest keeps only its id
// and nickname.
func (t *Trip) PublicView() *Trip {
	v := *t
	v.HostContactValue = ""
	if t.Guest != nil {
		v.Guest = &Guest{ID: t.Guest.ID, Nickname: t.Guest.Nickname}
	}
	return &v
}

type PairingRequest struct {
	ID                     string              `json:"id" firestore:"-"`
	TripID                 string              `json:"tripId" firestore:"tripId"`
	HostID                 string              `json:"hostId" firestore:"hostId"`
	HostNickname           string              `json:"hostNickname" firestore:"hostNickname"`
	RequesterID            string              `json:"requesterId" firestore:"requesterId"`
	RequesterName          string              `json:"requesterName" firestore:"requesterName"`
	RequesterContactMethod types.ContactMethod `json:"requesterContactMethod" firestore:"requesterContactMethod"`
	RequesterContactValue  string              `json:"requesterContactValue" firestore:"requesterContactValue"`
	Luggage                types.Luggage       `json:"luggage" firestore:"luggage"`
	Note                   string              `json:"note" firestore:"note"`
	Status                 RequestStatus       `json:"status" firestore:"status"`
	CreatedAt              time.Time           `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt              time.Time           `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// GuestSnapshot copies the requester-facing fields of r onto a Guest.
func (r *PairingRequest) GuestSnapshot() Guest {
	return Guest{
		ID:            r.RequesterID,
		Nickname:      r.RequesterName,
		Luggage:       r.Luggage,
		Note:          r.Note,
		ContactMethod: r.RequesterContactMethod,
		ContactValue:  r.RequesterContactValue,
	}
}

// Event is one committed status transition, kept for the audit log.
type Event struct {
	TripID     string
	RequestID  string
	Entity     string
	FromStatus string
	ToStatus   string
	ActorID    string
	CreatedAt  time.Time
}

const (
	EntityTrip    = "trip"
	EntityRequest = "pairing_request"
)

// AllowedTripTransitions represents the trip state flow as code.
var AllowedTripTransitions = map[TripStatus][]TripStatus{
	TripOpen: {TripPaired},
}

// AllowedRequestTransitions represents the pairing-request state flow as code.
// Accepted and declined are terminal.
var AllowedRequestTransitions = map[RequestStatus][]RequestStatus{
	RequestNone:    {RequestPending},
	RequestPending: {RequestAccepted, RequestDeclined},
}

func CanTransitionTrip(from, to TripStatus) bool {
	return contains(AllowedTripTransitions[from], to)
}

func CanTransitionRequest(from, to RequestStatus) bool {
	return contains(AllowedRequestTransitions[from], to)
}

func contains[S ~string](list []S, v S) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
