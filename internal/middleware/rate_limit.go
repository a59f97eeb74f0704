package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"farm2go/internal/redis"
	"farm2go/pkg/limiter"
	"farm2go/pkg/log"
	"farm2go/pkg/utils"
)

// RateLimit per-client token bucket rate limiting. Keys default to the
// client IP; authenticated requests use the profile ID so users behind
// a shared connection do not throttle each other.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	buckets := limiter.NewKeyedLimiter(rps, burst)
	buckets.StartCleanup(time.Minute, nil)

	return func(c *gin.Context) {
		key := c.ClientIP()
		if id, ok := GetProfileID(c); ok {
			key = fmt.Sprintf("profile:%d", id)
		}

		if !buckets.Allow(key) {
			log.WithFields(map[string]interface{}{
				"key":    key,
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Warn("Rate limit exceeded")

			utils.ErrorResponse(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}

// CheckoutRateLimit sliding-window limit on order placement, enforced
// in Redis so it holds across processes. Fails open when Redis is
// unreachable; checkout availability wins over strict limiting.
func CheckoutRateLimit(limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetProfileID(c)
		if !ok {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:checkout:%d", id)
		allowed, remaining, err := redis.CheckRateLimit(c.Request.Context(), key, window, limit)
		if err != nil {
			log.Warnf("Checkout rate limit check failed, allowing: %v", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			log.Warnf("Checkout rate limit hit for profile %d", id)
			utils.ErrorResponse(c, http.StatusTooManyRequests, "too many orders, slow down")
			c.Abort()
			return
		}

		c.Next()
	}
}
