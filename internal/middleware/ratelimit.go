package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"recipebox/internal/models"
	"recipebox/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when the counter store is unreachable.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

const rateLimitKeyPrefix = "recipebox:ratelimit"

// Quota is the state of a caller's bucket after counting one request.
type Quota struct {
	// Enforced is false when limiting is switched off for the environment.
	Enforced  bool
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// rateLimitEnforced is false for local and test environments.
func rateLimitEnforced() bool {
	switch strings.ToLower(os.Getenv("APP_ENV")) {
	case "", "test", "development":
		return false
	}
	return true
}

func rateLimitKey(resource, caller string) string {
	return fmt.Sprintf("%s:%s:%s", rateLimitKeyPrefix, resource, caller)
}

// CheckRateLimit counts one request by caller against resource using a fixed
// window of length window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, caller string, limit int, window time.Duration) (Quota, error) {
	if !rateLimitEnforced() {
		return Quota{Allowed: true, Remaining: limit}, nil
	}
	if rdb == nil {
		return Quota{}, errors.New("rate limit store not configured")
	}

	key := rateLimitKey(resource, caller)
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RedisErrors.WithLabelValues("incr").Inc()
		return Quota{}, err
	}

	resetIn := pttl.Val()
	if resetIn < 0 {
		// First hit of the window, or a bucket whose expiry was lost.
		if err := rdb.PExpire(ctx, key, window).Err(); err != nil {
			observability.RedisErrors.WithLabelValues("pexpire").Inc()
			return Quota{}, err
		}
		resetIn = window
	}

	count := int(incr.Val())
	return Quota{
		Enforced:  true,
		Allowed:   count <= limit,
		Remaining: max(limit-count, 0),
		ResetIn:   resetIn,
	}, nil
}

// RateLimit allows limit requests per window for each caller on the route and
// lets requests through when Redis is down. name labels the bucket; it
// defaults to the route pattern.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit FailPolicy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resource := c.Route().Path
		if len(name) > 0 {
			resource = name[0]
		}
		ctx := c.UserContext()

		quota, err := CheckRateLimit(ctx, rdb, resource, callerKey(c), limit, window)
		if err != nil {
			attrs := []any{
				slog.String("resource", resource),
				slog.String("ip", c.IP()),
				slog.String("error", err.Error()),
			}
			if policy == FailClosed {
				observability.RateLimitDecisions.WithLabelValues(resource, "fail_closed").Inc()
				Logger.ErrorContext(ctx, "rate limit store unavailable, rejecting request", attrs...)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					models.NewUnavailableError("Rate limiting is temporarily unavailable", err))
			}
			observability.RateLimitDecisions.WithLabelValues(resource, "fail_open").Inc()
			Logger.WarnContext(ctx, "rate limit store unavailable, allowing request", attrs...)
			return c.Next()
		}
		if !quota.Enforced {
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
		if !quota.Allowed {
			observability.RateLimitDecisions.WithLabelValues(resource, "limited").Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(quota.ResetIn)))
			Logger.InfoContext(ctx, "rate limit exceeded", slog.String("resource", resource), slog.String("ip", c.IP()))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError(resource))
		}
		observability.RateLimitDecisions.WithLabelValues(resource, "allowed").Inc()
		return c.Next()
	}
}

// callerKey buckets signed-in users by id and everyone else by address.
func callerKey(c *fiber.Ctx) string {
	if uid := UserID(c); uid != 0 {
		return fmt.Sprintf("user:%d", uid)
	}
	return "ip:" + c.IP()
}

func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
