package state

import (
	"context"
	"log/slog"
	"time"
)

// Cleaner drops conversations that have been idle longer than ttl.
type Cleaner struct {
	fsm      StateMachine
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(fsm StateMachine, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		fsm:      fsm,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.fsm == nil || c.interval <= 0 || c.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("state cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup runs one eviction pass and returns how many conversations were removed.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	conversations, err := c.fsm.All(ctx)
	if err != nil {
		c.log.Error("state cleaner failed to list conversations", slog.Any("error", err))
		return 0
	}

	removed := 0
	cutoff := c.now().Add(-c.ttl)
	for _, conv := range conversations {
		if conv == nil || conv.UpdatedAt.After(cutoff) {
			continue
		}

		if err := c.fsm.Clear(ctx, conv.ChatID); err != nil {
			c.log.Error("state cleaner failed to clear conversation", slog.Int64("chat_id", conv.ChatID), slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		c.log.Info("stale conversations cleared", slog.Int("removed", removed))
	}
	return removed
}
