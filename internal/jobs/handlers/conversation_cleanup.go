package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/koi-bot/internal/jobs"
)

// Sweeper runs one eviction pass over idle conversations.
type Sweeper interface {
	Cleanup(ctx context.Context) int
}

type ConversationCleanupHandler struct {
	sweeper Sweeper
	log     *slog.Logger
}

func NewConversationCleanupHandler(sweeper Sweeper, log *slog.Logger) *ConversationCleanupHandler {
	if log == nil {
		log = slog.Default()
	}
	return &ConversationCleanupHandler{sweeper: sweeper, log: log}
}

func (h *ConversationCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.ConversationCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}

	removed := h.sweeper.Cleanup(ctx)
	h.log.DebugContext(ctx, "conversation cleanup finished",
		slog.Duration("older_than", payload.OlderThan),
		slog.Int("removed", removed),
	)
	return nil
}
