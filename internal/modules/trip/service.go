// README: Trip service implements the pairing lifecycle: create trip, request, accept.
package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
	"github.com/Peer-Ride/peer-ride-functions/internal/config"
	"github.com/Peer-Ride/peer-ride-functions/internal/types"
)

var (
	ErrUnauthenticated  = apperr.Unauthenticated("sign in required")
	ErrTripNotFound     = apperr.NotFound("trip not found")
	ErrRequestNotFound  = apperr.NotFound("pairing request not found")
	ErrTripNoHost       = apperr.FailedPrecondition("trip has no host")
	ErrTripNotOpen      = apperr.FailedPrecondition("trip is not open")
	ErrSelfRequest      = apperr.FailedPrecondition("you cannot request your own trip")
	ErrRequestResolved  = apperr.FailedPrecondition("pairing request is no longer pending")
	ErrRequestNoTrip    = apperr.FailedPrecondition("pairing request is missing its trip")
	ErrNotHost          = apperr.PermissionDenied("only the trip host can do this")
	ErrNotParticipant   = apperr.PermissionDenied("only the host or the requester can view this request")
	ErrDuplicateRequest = apperr.AlreadyExists("you already have an active request on this trip")
	ErrTripCapReached   = apperr.ResourceExhausted("active trip limit reached")
)

type Service struct {
	store     Store
	maxActive int
	events    EventRecorder
	resolver  LocationResolver
	log       *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithEvents(r EventRecorder) Option {
	return func(s *Service) { s.events = r }
}

func WithResolver(r LocationResolver) Option {
	return func(s *Service) { s.resolver = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, cfg config.TripsConfig, opts ...Option) *Service {
	s := &Service{
		store:     store,
		maxActive: cfg.MaxActive,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.maxActive < 1 {
		s.maxActive = 1
	}
	return s
}

// AcceptResult is the outcome of an accept. The trip and request are already
// committed; Declined and DeclineErr describe the follow-up fan-out.
type AcceptResult struct {
	Request    *PairingRequest
	Trip       *Trip
	Declined   []string
	DeclineErr error
}

// CreateTrip opens a new trip for the caller. The active-trip cap is checked
// with a plain count before the insert, so concurrent creates by one host can
// overshoot it by a trip or two.
func (s *Service) CreateTrip(ctx context.Context, caller types.Caller, cmd CreateTripCommand) (*Trip, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	active, err := s.store.CountActiveTrips(ctx, caller.UID, now)
	if err != nil {
		return nil, fmt.Errorf("trip.Service.CreateTrip: count active: %w", err)
	}
	if active >= s.maxActive {
		return nil, ErrTripCapReached
	}

	t := &Trip{
		HostID:            caller.UID,
		HostNickname:      caller.Name,
		Origin:            s.resolve(ctx, cmd.Origin),
		Destination:       s.resolve(ctx, cmd.Destination),
		DepartureStart:    cmd.DepartureStart,
		DepartureEnd:      cmd.DepartureEnd,
		Luggage:           cmd.Luggage,
		HostContactMethod: cmd.HostContactMethod,
		HostContactValue:  cmd.HostContactValue,
		Status:            TripOpen,
	}
	if t.HostContactMethod == types.ContactChat {
		t.HostContactValue = ""
	}
	if err := s.store.CreateTrip(ctx, t); err != nil {
		return nil, fmt.Errorf("trip.Service.CreateTrip: %w", err)
	}

	s.record(ctx, Event{
		TripID:     t.ID,
		Entity:     EntityTrip,
		FromStatus: "",
		ToStatus:   string(TripOpen),
		ActorID:    caller.UID,
		CreatedAt:  now,
	})
	return t, nil
}

// CreatePairingRequest files a pending request from the caller against an
// open trip. The duplicate check is a lookup right before the insert; two
// simultaneous submissions can both pass it. Accept re-checks everything it
// depends on, so a duplicate can at worst be declined later.
func (s *Service) CreatePairingRequest(ctx context.Context, caller types.Caller, cmd CreatePairingRequestCommand) (*PairingRequest, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	t, err := s.store.GetTrip(ctx, cmd.TripID)
	if err != nil {
		return nil, wrapStore("trip.Service.CreatePairingRequest", err)
	}
	if t.HostID == "" {
		return nil, ErrTripNoHost
	}
	if t.Status != TripOpen {
		return nil, ErrTripNotOpen
	}
	if t.HostID == caller.UID {
		return nil, ErrSelfRequest
	}

	dup, err := s.store.HasActiveRequest(ctx, t.ID, caller.UID)
	if err != nil {
		return nil, fmt.Errorf("trip.Service.CreatePairingRequest: duplicate check: %w", err)
	}
	if dup {
		return nil, ErrDuplicateRequest
	}

	name := cmd.Nickname
	if name == "" {
		name = caller.Name
	}
	r := &PairingRequest{
		TripID:                 t.ID,
		HostID:                 t.HostID,
		HostNickname:           t.HostNickname,
		RequesterID:            caller.UID,
		RequesterName:          name,
		RequesterContactMethod: cmd.ContactMethod,
		RequesterContactValue:  cmd.ContactValue,
		Luggage:                cmd.Luggage,
		Note:                   cmd.Note,
		Status:                 RequestPending,
	}
	if r.RequesterContactMethod == types.ContactChat {
		r.RequesterContactValue = ""
	}
	if err := s.store.CreatePairingRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("trip.Service.CreatePairingRequest: %w", err)
	}

	s.record(ctx, Event{
		TripID:     t.ID,
		RequestID:  r.ID,
		Entity:     EntityRequest,
		FromStatus: string(RequestNone),
		ToStatus:   string(RequestPending),
		ActorID:    caller.UID,
		CreatedAt:  s.now(),
	})
	return r, nil
}

// AcceptPairingRequest pairs the trip with the request's requester.
//
// Phase one is a single transaction over the request and the trip: either both
// flip (accepted, paired with guest) or neither does. A competing accept on the
// same trip loses the commit race, re-reads the trip as paired and fails with
// ErrTripNotOpen.
//
// Phase two runs after commit and declines the trip's other pending requests.
// It is not part of the transaction; a failure there is logged and returned in
// AcceptResult.DeclineErr while the pairing stands. Requests left pending on a
// paired trip are moot and get removed by the cleanup sweep.
func (s *Service) AcceptPairingRequest(ctx context.Context, caller types.Caller, cmd AcceptCommand) (*AcceptResult, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		accepted *PairingRequest
		paired   *Trip
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		r, err := tx.GetPairingRequest(cmd.RequestID)
		if err != nil {
			return err
		}
		if !CanTransitionRequest(r.Status, RequestAccepted) {
			return ErrRequestResolved
		}
		if r.TripID == "" {
			return ErrRequestNoTrip
		}
		t, err := tx.GetTrip(r.TripID)
		if err != nil {
			return err
		}
		if t.HostID != caller.UID {
			return ErrNotHost
		}
		if !CanTransitionTrip(t.Status, TripPaired) {
			return ErrTripNotOpen
		}

		guest := r.GuestSnapshot()
		if err := tx.SetRequestStatus(r.ID, RequestAccepted); err != nil {
			return err
		}
		if err := tx.PairTrip(t.ID, guest); err != nil {
			return err
		}
		r.Status = RequestAccepted
		t.Status = TripPaired
		t.Guest = &guest
		accepted, paired = r, t
		return nil
	})
	if err != nil {
		return nil, wrapStore("trip.Service.AcceptPairingRequest", err)
	}

	now := s.now()
	res := &AcceptResult{Request: accepted, Trip: paired}
	res.Declined, res.DeclineErr = s.declineSiblings(ctx, paired.ID, accepted.ID)

	events := []Event{
		{TripID: paired.ID, RequestID: accepted.ID, Entity: EntityRequest, FromStatus: string(RequestPending), ToStatus: string(RequestAccepted), ActorID: caller.UID, CreatedAt: now},
		{TripID: paired.ID, Entity: EntityTrip, FromStatus: string(TripOpen), ToStatus: string(TripPaired), ActorID: caller.UID, CreatedAt: now},
	}
	for _, id := range res.Declined {
		events = append(events, Event{TripID: paired.ID, RequestID: id, Entity: EntityRequest, FromStatus: string(RequestPending), ToStatus: string(RequestDeclined), ActorID: "system", CreatedAt: now})
	}
	s.record(ctx, events...)
	return res, nil
}

// declineSiblings returns the ids it attempted to decline. On a partial
// failure some of them may still be pending.
func (s *Service) declineSiblings(ctx context.Context, tripID, acceptedID string) ([]string, error) {
	pending, err := s.store.ListPairingRequests(ctx, tripID, RequestPending)
	if err != nil {
		s.log.ErrorContext(ctx, "list sibling requests failed", "trip_id", tripID, "error", err)
		return nil, err
	}
	ids := make([]string, 0, len(pending))
	for _, r := range pending {
		if r.ID != acceptedID && CanTransitionRequest(r.Status, RequestDeclined) {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.store.DeclineRequests(ctx, ids); err != nil {
		s.log.ErrorContext(ctx, "decline sibling requests failed", "trip_id", tripID, "count", len(ids), "error", err)
		return ids, err
	}
	return ids, nil
}

// GetTrip returns the trip as the caller may see it. Contact details are
// shown only to the host and the paired guest.
func (s *Service) GetTrip(ctx context.Context, caller types.Caller, id string) (*Trip, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	t, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, wrapStore("trip.Service.GetTrip", err)
	}
	if !t.Participant(caller.UID) {
		return t.PublicView(), nil
	}
	return t, nil
}

func (s *Service) GetPairingRequest(ctx context.Context, caller types.Caller, id string) (*PairingRequest, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	r, err := s.store.GetPairingRequest(ctx, id)
	if err != nil {
		return nil, wrapStore("trip.Service.GetPairingRequest", err)
	}
	if caller.UID != r.HostID && caller.UID != r.RequesterID {
		return nil, ErrNotParticipant
	}
	return r, nil
}

// ListPairingRequests returns every request on the caller's trip.
func (s *Service) ListPairingRequests(ctx context.Context, caller types.Caller, tripID string) ([]*PairingRequest, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, wrapStore("trip.Service.ListPairingRequests", err)
	}
	if t.HostID != caller.UID {
		return nil, ErrNotHost
	}
	rs, err := s.store.ListPairingRequests(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("trip.Service.ListPairingRequests: %w", err)
	}
	return rs, nil
}

func (s *Service) resolve(ctx context.Context, loc types.Location) types.Location {
	if s.resolver == nil || loc.Name != "" {
		return loc
	}
	name, err := s.resolver.Resolve(ctx, loc.ID)
	if err != nil {
		s.log.WarnContext(ctx, "resolve location name failed", "place_id", loc.ID, "error", err)
		return loc
	}
	loc.Name = name
	return loc
}

func (s *Service) record(ctx context.Context, events ...Event) {
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Record(ctx, events...); err != nil {
		s.log.WarnContext(ctx, "record transition events failed", "count", len(events), "error", err)
	}
}

// wrapStore keeps tagged errors untouched and annotates the rest.
func wrapStore(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
