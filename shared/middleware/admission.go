package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/ledger/shared/limiter"
)

// Admission holds a worker slot for the duration of the request.
func Admission(pool limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		release, err := pool.Acquire(c.Request.Context())
		if err != nil {
			switch {
			case errors.Is(err, limiter.ErrBusy):
				c.Header("Retry-After", "1")
				RespondWithError(c, http.StatusServiceUnavailable, "Server busy, retry later")
			case errors.Is(err, context.DeadlineExceeded):
				RespondWithError(c, http.StatusGatewayTimeout, "Request timed out")
			default:
				RespondWithError(c, http.StatusServiceUnavailable, "Request cancelled")
			}
			return
		}
		defer release()
		c.Next()
	}
}
