package middleware

import (
	"context"
	"errors"
	"math"
	"os"
	"strconv"
	"time"

	"recipeexchange/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var errNoLimiterStore = errors.New("rate limit store not configured")

// Limit is a fixed-window quota shared by every request with the same name
// and subject.
type Limit struct {
	Name   string
	Max    int
	Window time.Duration
	// FailClosed answers 503 when Redis cannot be reached. By default such
	// requests are let through.
	FailClosed bool
}

// Quota is the state of a subject's window after counting one request.
type Quota struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

func limiterBypassed() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

// Take counts one request by subject against limit.
func Take(ctx context.Context, rdb *redis.Client, limit Limit, subject string) (Quota, error) {
	if limiterBypassed() {
		return Quota{Allowed: true, Remaining: limit.Max, ResetIn: limit.Window}, nil
	}
	if rdb == nil {
		return Quota{}, errNoLimiterStore
	}

	key := "rl:" + limit.Name + ":" + subject
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return Quota{}, err
	}

	ttl, err := rdb.PTTL(ctx, key).Result()
	if err != nil {
		return Quota{}, err
	}
	// A key without expiry is either new or lost its TTL after a crash
	// between INCR and PEXPIRE.
	if ttl < 0 {
		if err := rdb.PExpire(ctx, key, limit.Window).Err(); err != nil {
			return Quota{}, err
		}
		ttl = limit.Window
	}

	remaining := limit.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Quota{
		Allowed:   count <= int64(limit.Max),
		Remaining: remaining,
		ResetIn:   ttl,
	}, nil
}

// RateLimit enforces limit per authenticated user, or per client IP for
// anonymous requests.
func RateLimit(rdb *redis.Client, limit Limit) fiber.Handler {
	if limit.Name == "" {
		limit.Name = "default"
	}
	return func(c *fiber.Ctx) error {
		subject := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(string); ok && uid != "" {
			subject = "user:" + uid
		}

		quota, err := Take(c.UserContext(), rdb, limit, subject)
		if err != nil {
			if !limit.FailClosed {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limiter unavailable, rejecting request",
				"limit", limit.Name,
				"path", c.Path(),
				"error", err.Error(),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
				Error: "rate limiting unavailable",
				Code:  "UNAVAILABLE",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
		if quota.Allowed {
			return c.Next()
		}

		RateLimitRejections.WithLabelValues(limit.Name).Inc()
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(quota.ResetIn.Seconds()))))
		return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
			Error: "too many requests",
			Code:  "RATE_LIMITED",
		})
	}
}
