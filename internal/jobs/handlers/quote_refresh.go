package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/koi-bot/internal/jobs"
)

// ErrNothingRefreshed is returned when no network could be read.
var ErrNothingRefreshed = errors.New("no network refreshed")

// Refresher re-reads every network's quote into the cache.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

type QuoteRefreshHandler struct {
	quotes Refresher
	log    *slog.Logger
	now    func() time.Time
}

func NewQuoteRefreshHandler(quotes Refresher, log *slog.Logger) *QuoteRefreshHandler {
	if log == nil {
		log = slog.Default()
	}
	return &QuoteRefreshHandler{quotes: quotes, log: log, now: time.Now}
}

func (h *QuoteRefreshHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.QuoteRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			h.log.ErrorContext(ctx, "quote refresh: failed to decode payload",
				slog.String("task_type", t.Type()),
				slog.Any("error", err),
			)
			return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	start := h.now()
	refreshed, err := h.quotes.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh quotes: %w", err)
	}
	if refreshed == 0 {
		// the next scheduled run retries anyway
		return fmt.Errorf("%w: %w", ErrNothingRefreshed, asynq.SkipRetry)
	}

	h.log.InfoContext(ctx, "quotes refreshed",
		slog.String("source", payload.Source),
		slog.Int("networks", refreshed),
		slog.Duration("duration", h.now().Sub(start)),
	)
	return nil
}
