// README: Validated input types for the trip operations.
package trip

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
	"github.com/Peer-Ride/peer-ride-functions/internal/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

type CreateTripCommand struct {
	Origin            types.Location      `json:"origin"`
	Destination       types.Location      `json:"destination"`
	DepartureStart    time.Time           `json:"departureStart"`
	DepartureEnd      time.Time           `json:"departureEnd"`
	Luggage           types.Luggage       `json:"luggage"`
	HostContactMethod types.ContactMethod `json:"hostContactMethod" validate:"oneof=chat email phone"`
	HostContactValue  string              `json:"hostContactValue" validate:"required_unless=HostContactMethod chat,max=200"`
}

func (c CreateTripCommand) Validate() error {
	if err := structErr(validate.Struct(c)); err != nil {
		return err
	}
	if c.DepartureStart.IsZero() {
		return apperr.InvalidArgument("departureStart is required")
	}
	if c.DepartureEnd.IsZero() {
		return apperr.InvalidArgument("departureEnd is required")
	}
	return nil
}

type CreatePairingRequestCommand struct {
	TripID        string              `json:"tripId" validate:"required,max=128,excludesall=/"`
	Nickname      string              `json:"nickname" validate:"max=60"`
	ContactMethod types.ContactMethod `json:"contactMethod" validate:"oneof=chat email phone"`
	ContactValue  string              `json:"contactValue" validate:"required_unless=ContactMethod chat,max=200"`
	Luggage       types.Luggage       `json:"luggage"`
	Note          string              `json:"note" validate:"max=500"`
}

func (c CreatePairingRequestCommand) Validate() error {
	return structErr(validate.Struct(c))
}

type AcceptCommand struct {
	RequestID string `json:"requestId" validate:"required,max=128,excludesall=/"`
}

func (c AcceptCommand) Validate() error {
	return structErr(validate.Struct(c))
}

// structErr turns the first validator violation into an InvalidArgument.
func structErr(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.TrimPrefix(fe.Namespace(), strings.Split(fe.Namespace(), ".")[0]+".")
		switch fe.Tag() {
		case "required", "required_unless":
			return apperr.InvalidArgument("%s is required", field)
		case "oneof":
			return apperr.InvalidArgument("%s must be one of [%s]", field, fe.Param())
		case "gte":
			return apperr.InvalidArgument("%s must be a non-negative number", field)
		case "max":
			return apperr.InvalidArgument("%s is too long", field)
		default:
			return apperr.InvalidArgument("%s is invalid", field)
		}
	}
	return apperr.InvalidArgument("invalid request: %v", err)
}
