package signup

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
)

var (
	ErrEmailInvalid     = apperr.InvalidArgument("a valid email address is required")
	ErrDomainNotAllowed = apperr.PermissionDenied("this email domain is not allowed to sign up")
)

// Checker gates account creation on the email domain.
type Checker struct {
	cache    *DomainCache
	validate *validator.Validate
}

func NewChecker(cache *DomainCache) *Checker {
	return &Checker{cache: cache, validate: validator.New()}
}

func (c *Checker) Check(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := c.validate.Var(email, "required,email"); err != nil {
		return ErrEmailInvalid
	}
	at := strings.LastIndex(email, "@")
	domain := normalize(email[at+1:])

	allowed, err := c.cache.Allowed(ctx)
	if err != nil {
		return err
	}
	if _, ok := allowed[domain]; !ok {
		return ErrDomainNotAllowed
	}
	return nil
}
