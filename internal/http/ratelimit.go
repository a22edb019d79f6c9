package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sealbox/sealbox/internal/httputil"
)

// createRateLimitMiddleware limits how often the rotation trigger can be
// called, across all clients: a rotation is an expensive, global operation,
// so a single shared token bucket is the right granularity. Returns nil when
// rate limiting is disabled.
func createRateLimitMiddleware(
	enabled bool,
	requestsPerSec float64,
	burst int,
	logger *slog.Logger,
) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSec), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.Warn("rotation trigger rate limited",
				slog.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.ErrorResponse{
				Error:   "rate_limited",
				Message: "Too many rotation triggers, slow down",
			})
			return
		}

		c.Next()
	}
}
