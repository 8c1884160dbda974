// README: Value objects shared across modules (locations, luggage, caller identity).
package types

// Location is a place descriptor chosen in the client: an opaque place id plus
// the name shown to users.
type Location struct {
	ID   string `json:"id" firestore:"id" validate:"required,max=256"`
	Name string `json:"name" firestore:"name" validate:"max=200"`
}

// Luggage counts the bags a traveller brings, per size class.
type Luggage struct {
	CarryOnSmall float64 `json:"carryOnSmall" firestore:"carryOnSmall" validate:"gte=0"`
	CarryOnLarge float64 `json:"carryOnLarge" firestore:"carryOnLarge" validate:"gte=0"`
	CheckedSmall float64 `json:"checkedSmall" firestore:"checkedSmall" validate:"gte=0"`
	CheckedLarge float64 `json:"checkedLarge" firestore:"checkedLarge" validate:"gte=0"`
}

type ContactMethod string

const (
	ContactChat  ContactMethod = "chat"
	ContactEmail ContactMethod = "email"
	ContactPhone ContactMethod = "phone"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	UID   string
	Email string
	Name  string
}

func (c Caller) Authenticated() bool {
	return c.UID != ""
}
