// README: Notification trigger: turns pairing request status changes into queued mail and pushes.
package notify

import (
	"context"
	"log/slog"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

// Trigger enqueues mail (and optionally pushes) when a pairing request is
// accepted or declined. Every failure is logged and swallowed.
type Trigger struct {
	trips    TripReader
	dir      Directory
	mail     MailQueue
	push     Pusher
	renderer *Renderer
	log      *slog.Logger
}

type TriggerOption func(*Trigger)

// WithPusher enables device notifications for recipients with an FCM token.
func WithPusher(p Pusher) TriggerOption {
	return func(t *Trigger) { t.push = p }
}

func WithLogger(l *slog.Logger) TriggerOption {
	return func(t *Trigger) { t.log = l }
}

func NewTrigger(trips TripReader, dir Directory, mail MailQueue, renderer *Renderer, opts ...TriggerOption) *Trigger {
	t := &Trigger{
		trips:    trips,
		dir:      dir,
		mail:     mail,
		renderer: renderer,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

var _ Handler = (*Trigger)(nil)

func (t *Trigger) Handle(ctx context.Context, ev PairingRequestUpdated) {
	if !ev.StatusChanged() {
		return
	}
	req := ev.After
	log := t.log.With("request_id", ev.RequestID, "trip_id", req.TripID, "status", string(req.Status))

	switch req.Status {
	case trip.RequestAccepted, trip.RequestDeclined:
	default:
		return
	}

	tr, err := t.trips.GetTrip(ctx, req.TripID)
	if err != nil {
		log.Warn("notify: trip lookup failed", "err", err)
		return
	}

	if req.Status == trip.RequestAccepted {
		t.send(ctx, log, req.RequesterID, t.renderer.AcceptedForRequester, tr, req, Push{
			Title:  "Request accepted",
			Body:   "Your ride request was accepted.",
			TripID: tr.ID,
		})
		t.send(ctx, log, tr.HostID, t.renderer.AcceptedForHost, tr, req, Push{
			Title:  "Trip paired",
			Body:   "You have a travel companion.",
			TripID: tr.ID,
		})
		return
	}
	t.send(ctx, log, req.RequesterID, t.renderer.DeclinedForRequester, tr, req, Push{
		Title:  "Request update",
		Body:   "Your ride request was not accepted.",
		TripID: tr.ID,
	})
}

type renderFunc func(*trip.Trip, *trip.PairingRequest, string) (Message, error)

func (t *Trigger) send(ctx context.Context, log *slog.Logger, uid string, render renderFunc, tr *trip.Trip, req *trip.PairingRequest, p Push) {
	log = log.With("recipient", uid)

	rec, err := t.dir.Lookup(ctx, uid)
	if err != nil {
		log.Warn("notify: recipient lookup failed", "err", err)
		// a partial record may still carry an email or a device token
	}

	if rec.Email == "" {
		log.Warn("notify: recipient has no email; skipping mail")
	} else if msg, err := render(tr, req, rec.Nickname); err != nil {
		log.Error("notify: render failed", "err", err)
	} else if err := t.mail.Enqueue(ctx, Mail{To: rec.Email, Message: msg}); err != nil {
		log.Error("notify: enqueue failed", "err", err)
	} else {
		log.Info("notify: mail queued", "subject", msg.Subject)
	}

	if t.push == nil || rec.FCMToken == "" {
		return
	}
	if err := t.push.Push(ctx, rec.FCMToken, p); err != nil {
		log.Warn("notify: push failed", "err", err)
	}
}
