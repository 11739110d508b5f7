package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/osvaldoandrade/repozip/internal/metrics"
	"github.com/osvaldoandrade/repozip/internal/ratelimit"
	"github.com/osvaldoandrade/repozip/pkg/config"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware limits requests per authenticated subject. It must run
// after AuthMiddleware; requests without claims pass through.
func RateLimitMiddleware(lim ratelimit.Limiter, scope string, bcfg config.RateLimitBucket) gin.HandlerFunc {
	bucket := ratelimit.Bucket{RequestsPerMinute: bcfg.RequestsPerMinute, BurstSize: bcfg.BurstSize}
	return func(c *gin.Context) {
		if lim == nil || !bucket.Enabled() {
			c.Next()
			return
		}
		claims, ok := GetClaims(c)
		if !ok {
			c.Next()
			return
		}

		dec, err := lim.Allow(c.Request.Context(), scope, claims.Subject, bucket)
		if err != nil {
			// Fail open on limiter store errors.
			slog.Default().Warn("rate limit check failed", "scope", scope, "err", err)
			c.Next()
			return
		}
		if dec.Allowed {
			c.Next()
			return
		}

		retryAfter := int(dec.RetryAfter.Seconds())
		if retryAfter <= 0 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		metrics.RateLimitHitsTotal.WithLabelValues(scope).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate limit exceeded",
			"scope":             scope,
			"retryAfterSeconds": retryAfter,
		})
	}
}
