package middleware

import (
	"math"
	"strconv"

	"scanner_server/pkg/apperr"
	"scanner_server/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// RateLimit limits requests per client IP using limiter.
func RateLimit(limiter ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := limiter.Allow(c.UserContext(), c.IP())
		setRateLimitHeaders(c, d)

		if !d.Allowed {
			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return apperr.New(apperr.CodeRateLimited, "too many requests", fiber.StatusTooManyRequests).
				WithDetail("retry_after", retryAfter)
		}
		return c.Next()
	}
}

func setRateLimitHeaders(c *fiber.Ctx, d ratelimit.Decision) {
	if d.Limit <= 0 {
		return
	}
	c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	}
}
