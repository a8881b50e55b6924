package ratelimit

import (
	"fmt"

	"voiceagent-server/internal/apierrors"
	"voiceagent-server/internal/observability"

	"github.com/gin-gonic/gin"
)

// Middleware limits each client IP to limit requests per minute on the routes it
// guards. A non-positive limit disables it.
func (s *Service) Middleware(scope string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		clientIP := observability.GetRealClientIP(c)
		ctx := observability.WithFields(c.Request.Context(),
			observability.Field{Key: "rate_limit_scope", Value: scope},
			observability.Field{Key: "client_ip", Value: clientIP},
		)

		result, err := s.CheckRateLimit(ctx, scope+":"+clientIP, limit)
		if err != nil {
			s.logger.Error(ctx, "rate limit check failed", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

		if !result.Allowed {
			retryAfter := (result.RetryAfterMs + 999) / 1000
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			s.logger.Warn(ctx, "rate limit exceeded")

			apierrors.TooManyRequests(c, "Rate limit exceeded", gin.H{
				"limit":       result.Limit,
				"retry_after": retryAfter,
				"reset_at":    result.ResetAt.Unix(),
			})
			return
		}

		c.Next()
	}
}
