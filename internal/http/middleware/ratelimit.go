package middleware

import (
	"fmt"
	"strconv"
	"time"

	"ars-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

const rateLimitWindow = time.Hour

// RateLimitKey builds the fixed-window Redis key for a caller. Authenticated
// requests are limited per user, anonymous ones per IP.
func RateLimitKey(scope, subject string, now time.Time) string {
	window := now.Truncate(rateLimitWindow).Unix()
	return fmt.Sprintf("ratelimit:%s:%s:%d", scope, subject, window)
}

// RateLimit caps requests per caller per hour using a Redis INCR counter.
func RateLimit(scope string, limit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limit <= 0 {
			return c.Next()
		}

		subject := c.IP()
		if userID, ok := c.Locals("user_id").(int64); ok {
			subject = "user:" + strconv.FormatInt(userID, 10)
		}

		now := time.Now()
		key := RateLimitKey(scope, subject, now)

		count, err := config.Redis.Incr(config.Ctx, key).Result()
		if err != nil {
			// Redis down should not take the API down with it.
			return c.Next()
		}

		if count == 1 {
			config.Redis.Expire(config.Ctx, key, rateLimitWindow)
		}

		if count > int64(limit) {
			retryAfter := now.Truncate(rateLimitWindow).Add(rateLimitWindow).Sub(now)
			c.Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fmt.Sprintf("Rate limit exceeded: %d requests per hour for %s", limit, scope),
			})
		}

		return c.Next()
	}
}
