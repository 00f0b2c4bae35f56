package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Proton-105/koi-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/i18n"
	"github.com/Proton-105/koi-bot/internal/transport"
	"github.com/Proton-105/koi-bot/pkg/logger"
)

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler, tr transport.Transport, texts i18n.Translator) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, ev *handlers.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.ErrorContext(ctx, "panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					cause := fmt.Errorf("panic recovered: %v", r)
					userMsg := apperrors.DefaultUserMessage
					if errHandler != nil {
						userMsg, _ = errHandler.Handle(ctx, cause)
					}

					if sendErr := reply(ctx, tr, ev, localize(texts, cause, userMsg)); sendErr != nil {
						log.ErrorContext(ctx, "failed to notify user about panic", slog.Any("error", sendErr))
					}

					err = nil
				}
			}()

			return next(ctx, ev)
		}
	}
}

// CorrelationMiddleware tags the context of every update with a fresh correlation id.
func CorrelationMiddleware() handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, ev *handlers.Event) error {
			if logger.CorrelationIDFromContext(ctx) == "" {
				ctx = logger.WithCorrelationID(ctx, logger.NewCorrelationID())
			}
			return next(ctx, ev)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for
// handler failures. Callback failures are reported through the callback
// answer, everything else gets a chat message.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler, tr transport.Transport, texts i18n.Translator, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, ev *handlers.Event) error {
			err := next(ctx, ev)
			if err == nil {
				return nil
			}

			userMsg := apperrors.DefaultUserMessage
			if errHandler != nil {
				if msg, _ := errHandler.Handle(ctx, err); msg != "" {
					userMsg = msg
				}
			}

			if sendErr := reply(ctx, tr, ev, localize(texts, err, userMsg)); sendErr != nil {
				log.WarnContext(ctx, "failed to report error to user",
					slog.Int64("chat_id", ev.ChatID),
					slog.Any("error", sendErr),
				)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(ctx context.Context, ev *handlers.Event) error {
			start := time.Now()
			action := describe(ev)

			log.DebugContext(ctx, "handling update",
				slog.Int("update_id", ev.UpdateID),
				slog.Int64("chat_id", ev.ChatID),
				slog.String("kind", ev.Kind.String()),
				slog.String("action", action),
			)
			err := next(ctx, ev)
			log.InfoContext(ctx, "handled update",
				slog.Int64("chat_id", ev.ChatID),
				slog.Int64("user_id", ev.UserID),
				slog.String("kind", ev.Kind.String()),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}

func describe(ev *handlers.Event) string {
	switch ev.Kind {
	case handlers.KindCommand:
		return ev.Command
	case handlers.KindCallback:
		return ev.Action().String()
	default:
		return ev.Kind.String()
	}
}

func reply(ctx context.Context, tr transport.Transport, ev *handlers.Event, text string) error {
	if ev == nil || text == "" {
		return nil
	}

	if ev.Kind == handlers.KindCallback {
		if ev.Notice == "" {
			ev.Notice = text
		}
		return nil
	}

	if tr == nil {
		return nil
	}
	_, err := tr.Send(ctx, ev.ChatID, transport.EscapeMarkdown(text), nil)
	return err
}

// localize swaps the built-in English messages for catalogue entries.
func localize(texts i18n.Translator, err error, fallback string) string {
	if texts == nil {
		return fallback
	}

	if appErr, ok := apperrors.As(err); ok && appErr.Code == apperrors.CodeRateLimit {
		return texts.Tf(i18n.KeyRateLimited, appErr.RetryAfter)
	}
	if fallback == "" || fallback == apperrors.DefaultUserMessage {
		return texts.T(i18n.KeyInternalError)
	}
	return fallback
}
