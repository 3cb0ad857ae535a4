package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimitStore is the attempt log the limiter consults, one sliding
// window per storage key.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}

// IdentifierFunc extracts the value a rule scopes its window by, usually
// the client IP. Returning false skips the rule for that request.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures one sliding-window limit.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter builds gin middleware that enforces sliding-window limits
// against a shared store.
type RateLimiter struct {
	store  RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// windowVerdict is the outcome of checking one request against a rule.
type windowVerdict struct {
	blocked    bool
	remaining  int
	resetAt    time.Time
	retryAfter time.Duration
}

func NewRateLimiter(store RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock swaps the limiter's clock, for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule by the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit enforces a single rule. Misconfigured rules become no-ops, and
// store failures let the request through so an unreachable Redis never
// locks clients out.
func (rl *RateLimiter) RateLimit(rule RateLimitRule) gin.HandlerFunc {
	if rl.store == nil || rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if rule.Name == "" {
		rule.Name = "default"
	}

	return func(c *gin.Context) {
		identifier, ok := rule.Identifier(c)
		if !ok || identifier == "" {
			c.Next()
			return
		}

		key := rule.Name + ":" + identifier
		verdict, err := rl.check(c.Request.Context(), rule, key, rl.now())
		if err != nil {
			rl.logger.Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.String("identifier", identifier),
				zap.Error(err))
			c.Next()
			return
		}

		writeWindowHeaders(c, rule.Limit, verdict)
		if verdict.blocked {
			retrySeconds := ceilSeconds(verdict.retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("too many requests, try again in %d seconds", retrySeconds),
				"retry_after": retrySeconds,
				"trace_id":    GetTraceID(c),
			})
			return
		}

		c.Next()
	}
}

// check trims the window, counts surviving attempts, and records the
// current one unless the limit is already reached.
func (rl *RateLimiter) check(ctx context.Context, rule RateLimitRule, key string, now time.Time) (windowVerdict, error) {
	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return windowVerdict{}, err
	}

	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return windowVerdict{}, err
	}

	resetAt := now.Add(rule.Window)
	if oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now); err != nil {
		return windowVerdict{}, err
	} else if found {
		resetAt = oldest.Add(rule.Window)
	}

	retryAfter := resetAt.Sub(now)
	if retryAfter < 0 {
		retryAfter = 0
	}

	if count >= rule.Limit {
		return windowVerdict{blocked: true, resetAt: resetAt, retryAfter: retryAfter}, nil
	}

	if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
		return windowVerdict{}, err
	}

	remaining := rule.Limit - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return windowVerdict{remaining: remaining, resetAt: resetAt, retryAfter: retryAfter}, nil
}

func writeWindowHeaders(c *gin.Context, limit int, verdict windowVerdict) {
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(verdict.remaining))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(verdict.resetAt.Unix(), 10))
	if verdict.blocked {
		headers.Set("Retry-After", strconv.Itoa(ceilSeconds(verdict.retryAfter)))
	}
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
