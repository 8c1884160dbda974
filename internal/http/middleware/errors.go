// README: Error body and status mapping shared by middleware and handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
)

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// HTTPStatus maps an error kind to the response status.
func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// statusName renders a code the way callable clients expect, e.g. FAILED_PRECONDITION.
func statusName(code codes.Code) string {
	var b strings.Builder
	for i, r := range code.String() {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// AbortWithError writes the error body for err and stops the chain.
// Untagged errors are reported as internal without their text.
func AbortWithError(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	if code == codes.OK {
		code = codes.Unknown
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(HTTPStatus(code), errorResponse{Error: errorBody{
		Status:  statusName(code),
		Message: apperr.Message(err),
	}})
}
