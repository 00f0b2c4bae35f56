package middleware

import (
	"context"
	"time"

	"github.com/Proton-105/koi-bot/internal/bot/handlers"
	"github.com/Proton-105/koi-bot/pkg/metrics"
)

// Metrics measures execution time and status for bot handlers, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(ctx context.Context, ev *handlers.Event) error {
		start := time.Now()
		err := next(ctx, ev)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordCommand(commandLabel(ev), status, time.Since(start))

		return err
	}
}

// commandLabel keeps label cardinality bounded: commands by name, everything
// else by kind.
func commandLabel(ev *handlers.Event) string {
	if ev == nil {
		return "unknown"
	}

	if ev.Kind == handlers.KindCommand && ev.Command != "" {
		return ev.Command
	}

	return ev.Kind.String()
}
