package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/koi-bot/internal/bot/handlers"
	"github.com/Proton-105/koi-bot/internal/idempotency"
)

// DefaultIdempotencyTTL is how long a handled update id is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// Idempotency ensures handlers execute at most once per Telegram update id.
// Telegram redelivers updates after webhook timeouts and poller restarts.
func Idempotency(manager idempotency.Manager, ttl time.Duration, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, ev *handlers.Event) error {
			key := idempotencyKey(ev)
			if key == "" {
				return next(ctx, ev)
			}

			var (
				ran        bool
				handlerErr error
			)
			result, err := manager.Execute(ctx, key, ttl, func(execCtx context.Context) (interface{}, error) {
				ran = true
				handlerErr = next(execCtx, ev)
				return nil, handlerErr
			})
			if ran {
				return handlerErr
			}
			if err != nil {
				if errors.Is(err, idempotency.ErrRequestInProgress) {
					return nil
				}
				// fail open while the store is unreachable
				log.WarnContext(ctx, "idempotency check failed", slog.Int("update_id", ev.UpdateID), slog.Any("error", err))
				return next(ctx, ev)
			}

			if result != nil && result.FromCache {
				log.DebugContext(ctx, "duplicate update skipped",
					slog.Int("update_id", ev.UpdateID),
					slog.Int64("chat_id", ev.ChatID),
				)
			}

			return nil
		}
	}
}

func idempotencyKey(ev *handlers.Event) string {
	if ev == nil || ev.UpdateID == 0 {
		return ""
	}
	return idempotency.GenerateKey("update", ev.UpdateID)
}
