// README: State machine tests for trips and pairing requests.
package trip

import "testing"

func TestCanTransition(t *testing.T) {
	tripCases := []struct {
		from, to TripStatus
		want     bool
	}{
		{TripOpen, TripPaired, true},
		// paired is terminal
		{TripPaired, TripOpen, false},
		{TripPaired, TripPaired, false},
		{TripOpen, TripOpen, false},
	}
	for _, tc := range tripCases {
		if got := CanTransitionTrip(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransitionTrip(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}

	requestCases := []struct {
		from, to RequestStatus
		want     bool
	}{
		{RequestNone, RequestPending, true},
		{RequestPending, RequestAccepted, true},
		{RequestPending, RequestDeclined, true},
		// accepted and declined are terminal
		{RequestAccepted, RequestDeclined, false},
		{RequestAccepted, RequestPending, false},
		{RequestDeclined, RequestAccepted, false},
		{RequestDeclined, RequestPending, false},
		// no skipping the pending state
		{RequestNone, RequestAccepted, false},
	}
	for _, tc := range requestCases {
		if got := CanTransitionRequest(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransitionRequest(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTripConsistent(t *testing.T) {
	g := &Guest{ID: "g1"}
	cases := []struct {
		trip Trip
		want bool
	}{
		{Trip{Status: TripOpen}, true},
		{Trip{Status: TripPaired, Guest: g}, true},
		{Trip{Status: TripOpen, Guest: g}, false},
		{Trip{Status: TripPaired}, false},
	}
	for _, tc := range cases {
		if got := tc.trip.Consistent(); got != tc.want {
			t.Errorf("Consistent(status=%s, guest=%v) = %v, want %v", tc.trip.Status, tc.trip.Guest != nil, got, tc.want)
		}
	}
}
