package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Proton-105/koi-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/ratelimit"
)

// globalKey is shared by every user.
const globalKey = "global"

// RateLimitMiddleware enforces per-user rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
	now     func() time.Time
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
		now:     time.Now,
	}
}

// Handle rejects updates over the global or the sender's limit with a rate
// limit error. Limiter failures let the update through.
func (m *RateLimitMiddleware) Handle(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(ctx context.Context, ev *handlers.Event) error {
		if m.limiter == nil || m.rules == nil || ev.UserID == 0 {
			return next(ctx, ev)
		}

		if m.rules.IsWhitelisted(ev.UserID) {
			return next(ctx, ev)
		}

		if limit, window, err := m.rules.GetGlobalLimit(); err == nil {
			if err := m.check(ctx, globalKey, limit, window); err != nil {
				return err
			}
		}

		rule := m.rules.GetPerUserLimit
		scope := "user"
		if ev.Kind == handlers.KindCallback {
			rule = m.rules.GetCallbackLimit
			scope = "callback"
		}

		limit, window, err := rule()
		if err != nil {
			if !errors.Is(err, ratelimit.ErrRuleDisabled) {
				m.log.ErrorContext(ctx, "failed to load rate limit rule", slog.String("scope", scope), slog.Any("error", err))
			}
			return next(ctx, ev)
		}

		if err := m.check(ctx, fmt.Sprintf("%s:%d", scope, ev.UserID), limit, window); err != nil {
			m.log.WarnContext(ctx, "rate limit exceeded", slog.Int64("user_id", ev.UserID), slog.String("scope", scope))
			return err
		}

		return next(ctx, ev)
	}
}

func (m *RateLimitMiddleware) check(ctx context.Context, key string, limit int, window time.Duration) error {
	result, err := m.limiter.Check(ctx, key, limit, window)
	if err != nil && !errors.Is(err, ratelimit.ErrLimitExceeded) {
		m.log.WarnContext(ctx, "rate limiter error", slog.String("key", key), slog.Any("error", err))
		return nil
	}

	if result != nil && !result.Allowed {
		return apperrors.NewRateLimitError(m.retryAfter(result.ResetAt))
	}
	if result == nil && err != nil {
		return apperrors.NewRateLimitError(int(window.Seconds()))
	}
	return nil
}

// retryAfter rounds the wait up to whole seconds, at least one.
func (m *RateLimitMiddleware) retryAfter(resetAt time.Time) int {
	seconds := int(math.Ceil(resetAt.Sub(m.now()).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
