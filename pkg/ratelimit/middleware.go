package ratelimit

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub-backend/internal/apperr"
	"taskhub-backend/pkg/response"
)

// Middleware enforces a limit per client within window. Keys are the authenticated
// user id when available, the client IP otherwise. A nil limiter disables the check
// (no Redis configured), and a Redis outage fails open so the limiter can never take
// the API down with it.
func Middleware(limiter *Limiter, scope string, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := scope + ":" + ClientKey(c)
		res, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("rate limiter unavailable, failing open", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			retryAfter := int(time.Until(res.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("retry_after", strconv.Itoa(retryAfter))
			response.Fail(c, logger, apperr.RateLimited("too many requests, please try again later"))
			return
		}

		c.Next()
	}
}

// ClientKey identifies the rate-limited client: the authenticated user id when
// available, the client IP otherwise. Handlers use it to target a scope reset.
func ClientKey(c *gin.Context) string {
	if userID := c.GetString("userID"); userID != "" {
		return userID
	}
	return c.ClientIP()
}
