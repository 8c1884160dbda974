// README: Recovery middleware; turns panics into a logged 500.
package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"

	"github.com/Peer-Ride/peer-ride-functions/internal/apperr"
)

func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					"panic", fmt.Sprint(r),
					"request_id", RequestID(c),
					"stack", string(debug.Stack()),
				)
				AbortWithError(c, apperr.New(codes.Internal, "internal error"))
			}
		}()
		c.Next()
	}
}
