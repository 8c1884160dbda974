// README: Auth middleware; verifies Firebase ID tokens and stores the caller on the context.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
	"github.com/Peer-Ride/peer-ride-functions/internal/infra"
	"github.com/Peer-Ride/peer-ride-functions/internal/types"
)

const callerKey = "caller"

var (
	errMissingToken = apperr.Unauthenticated("missing bearer token")
	errInvalidToken = apperr.Unauthenticated("invalid or expired token")
)

// Auth rejects requests without a valid "Authorization: Bearer <id token>".
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			AbortWithError(c, errMissingToken)
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil || token.UID == "" {
			AbortWithError(c, errInvalidToken)
			return
		}
		c.Set(callerKey, types.Caller{
			UID:   token.UID,
			Email: token.Email(),
			Name:  token.Name(),
		})
		c.Next()
	}
}

// CallerFrom returns the authenticated caller, or the zero Caller on routes
// without Auth.
func CallerFrom(c *gin.Context) types.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(types.Caller); ok {
			return caller
		}
	}
	return types.Caller{}
}
