package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/utils"
)

// RateLimiterConfig controls the per-client request budget.
type RateLimiterConfig struct {
	// Max is the number of requests allowed per Duration. The default is
	// sized for pages rather than APIs: one page load can cost several
	// requests once its fragments start refreshing themselves, so the
	// budget is a per-minute allowance instead of a per-second cap.
	Max int

	// Duration is the window the budget applies to.
	Duration time.Duration

	// Skip exempts a request from limiting. Health checks, the metrics
	// endpoint and live-update sockets are always exempt regardless.
	Skip func(*fiber.Ctx) bool

	// Storage optionally shares counters across processes.
	Storage fiber.Storage
}

// RateLimiterOption configures the rate limiter.
type RateLimiterOption func(*RateLimiterConfig)

// WithMax sets the request budget per window.
func WithMax(max int) RateLimiterOption {
	return func(cfg *RateLimiterConfig) {
		cfg.Max = max
	}
}

// WithDuration sets the budget window.
func WithDuration(duration time.Duration) RateLimiterOption {
	return func(cfg *RateLimiterConfig) {
		cfg.Duration = duration
	}
}

// WithSkip sets a predicate that exempts matching requests.
func WithSkip(skip func(*fiber.Ctx) bool) RateLimiterOption {
	return func(cfg *RateLimiterConfig) {
		cfg.Skip = skip
	}
}

// WithStorage sets a shared counter backend, for multi-instance
// deployments where the limit must hold across processes.
func WithStorage(storage fiber.Storage) RateLimiterOption {
	return func(cfg *RateLimiterConfig) {
		cfg.Storage = storage
	}
}

// exemptPath reports the endpoints the limiter never counts. Starving a
// health probe or an open live socket breaks the server in ways a limiter
// is not meant to.
func exemptPath(path string) bool {
	return strings.HasPrefix(path, "/_health") ||
		strings.HasPrefix(path, "/metrics") ||
		strings.HasPrefix(path, "/_live")
}

// RateLimiter limits requests per client IP. Over-budget requests get a
// 429 with a Retry-After header covering the rest of the window.
func RateLimiter(options ...RateLimiterOption) fiber.Handler {
	cfg := RateLimiterConfig{
		Max:      300,
		Duration: time.Minute,
	}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.Max <= 0 {
		cfg.Max = 300
	}
	if cfg.Duration <= 0 {
		cfg.Duration = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Duration,
		Storage:    cfg.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.CopyString(c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			retry := strconv.Itoa(int(cfg.Duration.Seconds()))
			c.Set(fiber.HeaderRetryAfter, retry)
			c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			c.Set("X-RateLimit-Remaining", "0")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too Many Requests",
				"retry_after": retry,
			})
		},
		Next: func(c *fiber.Ctx) bool {
			if exemptPath(c.Path()) {
				return true
			}
			return cfg.Skip != nil && cfg.Skip(c)
		},
	})
}
