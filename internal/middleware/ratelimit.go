package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"socialhub/internal/models"
	"socialhub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// ParseFailPolicy maps the RATE_LIMIT_POLICY setting; anything but
// "fail_closed" is FailOpen.
func ParseFailPolicy(s string) FailPolicy {
	if s == "fail_closed" {
		return FailClosed
	}
	return FailOpen
}

// maxLocalLimiters bounds the in-process fallback table.
const maxLocalLimiters = 10000

// RateLimiter counts requests per key in fixed Redis windows (INCR+EXPIRE).
// Without Redis it falls back to an in-process token bucket per key.
type RateLimiter struct {
	rdb      *redis.Client
	policy   FailPolicy
	disabled bool

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// NewRateLimiter builds a limiter. disabled turns every check into an allow,
// which dev and test environments use.
func NewRateLimiter(rdb *redis.Client, policy FailPolicy, disabled bool) *RateLimiter {
	return &RateLimiter{
		rdb:      rdb,
		policy:   policy,
		disabled: disabled,
		local:    make(map[string]*rate.Limiter),
	}
}

// Allow reports whether one more request for resource/id fits in the window.
func (l *RateLimiter) Allow(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, error) {
	if l.disabled {
		return true, nil
	}
	key := fmt.Sprintf("rl:%s:%s", resource, id)

	if l.rdb == nil {
		return l.allowLocal(key, limit, window), nil
	}

	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

func (l *RateLimiter) allowLocal(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.local[key]
	if !ok {
		if len(l.local) >= maxLocalLimiters {
			l.local = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Every(window/time.Duration(max(limit, 1))), limit)
		l.local[key] = lim
	}
	return lim.Allow()
}

// Limit returns a Fiber middleware enforcing limit requests per window under
// name. It keys by authenticated user if known, otherwise by remote IP.
func (l *RateLimiter) Limit(name string, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid := UserID(c); uid != "" {
			id = "user:" + uid
		}

		allowed, err := l.Allow(c.UserContext(), name, id, limit, window)
		if err != nil {
			observability.RateLimitDecisions.WithLabelValues(name, "error").Inc()
			if l.policy == FailClosed {
				slog.WarnContext(c.UserContext(), "rate limit fail-closed",
					slog.String("resource", name), slog.String("error", err.Error()))
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					models.NewInternalError(fmt.Errorf("rate limit unavailable")))
			}
			return c.Next()
		}

		if !allowed {
			observability.RateLimitDecisions.WithLabelValues(name, "limited").Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
		}
		observability.RateLimitDecisions.WithLabelValues(name, "allowed").Inc()
		return c.Next()
	}
}
