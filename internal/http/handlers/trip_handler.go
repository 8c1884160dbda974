// README: Trip and pairing request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Peer-Ride/peer-ride-functions/internal/http/middleware"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
)

type TripHandler struct {
	trips *trip.Service
}

func NewTripHandler(svc *trip.Service) *TripHandler {
	return &TripHandler{trips: svc}
}

func (h *TripHandler) Create(c *gin.Context) {
	var cmd trip.CreateTripCommand
	if !bindJSON(c, &cmd) {
		return
	}
	t, err := h.trips.CreateTrip(c.Request.Context(), middleware.CallerFrom(c), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"tripId": t.ID, "trip": t})
}

func (h *TripHandler) Get(c *gin.Context) {
	t, err := h.trips.GetTrip(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trip": t})
}

func (h *TripHandler) ListRequests(c *gin.Context) {
	reqs, err := h.trips.ListPairingRequests(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if reqs == nil {
		reqs = []*trip.PairingRequest{}
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": reqs})
}

func (h *TripHandler) CreateRequest(c *gin.Context) {
	var cmd trip.CreatePairingRequestCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TripID = c.Param("id")
	r, err := h.trips.CreatePairingRequest(c.Request.Context(), middleware.CallerFrom(c), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"requestId": r.ID, "request": r})
}

func (h *TripHandler) GetRequest(c *gin.Context) {
	r, err := h.trips.GetPairingRequest(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"request": r})
}

type acceptResponse struct {
	RequestID string   `json:"requestId"`
	TripID    string   `json:"tripId"`
	Declined  []string `json:"declined"`
	// DeclinePending is set when the sibling fan-out did not finish; the
	// pairing itself is committed.
	DeclinePending bool `json:"declinePending,omitempty"`
}

func (h *TripHandler) Accept(c *gin.Context) {
	res, err := h.trips.AcceptPairingRequest(c.Request.Context(), middleware.CallerFrom(c), trip.AcceptCommand{
		RequestID: c.Param("id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	declined := res.Declined
	if declined == nil {
		declined = []string{}
	}
	writeJSON(c, http.StatusOK, acceptResponse{
		RequestID:      res.Request.ID,
		TripID:         res.Trip.ID,
		Declined:       declined,
		DeclinePending: res.DeclineErr != nil,
	})
}
