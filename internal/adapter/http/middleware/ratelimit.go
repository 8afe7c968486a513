package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redisStore "company-wallet/internal/adapter/storage/redis"
	"company-wallet/pkg/apperror"
	"company-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// RateLimitStore counts hits per key and window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*redisStore.RateLimitResult, error)
}

// DefaultRateLimitRules returns the built-in limits per endpoint group.
// paymentRequests overrides the payment_requests limit when positive.
func DefaultRateLimitRules(paymentRequests int64, window time.Duration) map[string]RateLimitRule {
	if paymentRequests <= 0 {
		paymentRequests = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return map[string]RateLimitRule{
		"payment_requests": {Limit: paymentRequests, Window: window},
		"otp_confirm":      {Limit: 20, Window: time.Minute},
		"payouts":          {Limit: 10, Window: time.Minute},
		"admin":            {Limit: 120, Window: time.Minute},
		"read":             {Limit: 120, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Counters are keyed by client IP. Store failures let the request through.
func RateLimiter(store RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", group, c.ClientIP())

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}
