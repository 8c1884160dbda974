// README: Base handler utilities (JSON binding, error mapping).
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"

	"github.com/gin-gonic/gin"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
	"github.com/Peer-Ride/peer-ride-functions/internal/http/middleware"
)

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindJSON decodes the body into dst, writing a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, decodeError(err))
		return false
	}
	return true
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, io.EOF):
		return apperr.InvalidArgument("request body is required")
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return apperr.InvalidArgument("request body must be a JSON object")
		}
		return apperr.InvalidArgument("%s must be %s", typeErr.Field, kindName(typeErr.Type))
	case errors.As(err, &syntaxErr):
		return apperr.InvalidArgument("request body is not valid JSON")
	default:
		return apperr.InvalidArgument("invalid request body: %v", err)
	}
}

func kindName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int32, reflect.Int64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice:
		return "a list"
	default:
		return "an object"
	}
}
