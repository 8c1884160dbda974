package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
	"github.com/Peer-Ride/peer-ride-functions/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

// Message is the rendered body the mail relay sends.
type Message struct {
	Subject string `firestore:"subject"`
	HTML    string `firestore:"html"`
}

const (
	tmplAcceptedRequester = "accepted_requester.html"
	tmplAcceptedHost      = "accepted_host.html"
	tmplDeclinedRequester = "declined_requester.html"
)

// Renderer turns trip and request state into mail messages. Links point at
// the web frontend under baseURL.
type Renderer struct {
	baseURL string
	loc     *time.Location
	tmpl    *template.Template
}

func NewRenderer(baseURL string, loc *time.Location) (*Renderer, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("frontend base url: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Renderer{baseURL: baseURL, loc: loc, tmpl: tmpl}, nil
}

type mailData struct {
	RecipientName  string
	OtherName      string
	Origin         string
	Destination    string
	DepartureStart string
	DepartureEnd   string
	ContactLabel   string
	ContactValue   string
	Note           string
	TripURL        string
	SearchURL      string
}

func (r *Renderer) base(t *trip.Trip, recipient string) mailData {
	return mailData{
		RecipientName:  fallback(recipient, "there"),
		Origin:         placeName(t.Origin),
		Destination:    placeName(t.Destination),
		DepartureStart: t.DepartureStart.In(r.loc).Format("Jan 2 15:04 MST"),
		DepartureEnd:   t.DepartureEnd.In(r.loc).Format("Jan 2 15:04 MST"),
		TripURL:        r.link("trips", t.ID),
		SearchURL:      r.link("trips"),
	}
}

// AcceptedForRequester tells the requester they were accepted and discloses
// the host's contact details.
func (r *Renderer) AcceptedForRequester(t *trip.Trip, req *trip.PairingRequest, recipient string) (Message, error) {
	d := r.base(t, recipient)
	d.OtherName = fallback(t.HostNickname, "Your host")
	d.ContactLabel = contactLabel(t.HostContactMethod)
	d.ContactValue = t.HostContactValue
	return r.render(tmplAcceptedRequester, "Your ride request was accepted", d)
}

// AcceptedForHost confirms the pairing to the host and discloses the guest's
// contact details.
func (r *Renderer) AcceptedForHost(t *trip.Trip, req *trip.PairingRequest, recipient string) (Message, error) {
	d := r.base(t, recipient)
	d.OtherName = fallback(req.RequesterName, "your guest")
	d.ContactLabel = contactLabel(req.RequesterContactMethod)
	d.ContactValue = req.RequesterContactValue
	d.Note = req.Note
	return r.render(tmplAcceptedHost, "Your trip is paired", d)
}

func (r *Renderer) DeclinedForRequester(t *trip.Trip, req *trip.PairingRequest, recipient string) (Message, error) {
	return r.render(tmplDeclinedRequester, "Update on your ride request", r.base(t, recipient))
}

func (r *Renderer) render(name, subject string, d mailData) (Message, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, d); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", name, err)
	}
	return Message{Subject: subject, HTML: buf.String()}, nil
}

func (r *Renderer) link(elem ...string) string {
	u, err := url.JoinPath(r.baseURL, elem...)
	if err != nil {
		return r.baseURL
	}
	return u
}

func contactLabel(m types.ContactMethod) string {
	switch m {
	case types.ContactEmail:
		return "email"
	case types.ContactPhone:
		return "phone"
	default:
		return "in-app chat"
	}
}

func placeName(l types.Location) string {
	return fallback(l.Name, l.ID)
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
