// Package pruner deletes stale UI messages after a new menu is rendered.
package pruner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Proton-105/koi-bot/pkg/metrics"
)

// Order is the deletion order within a prune window.
type Order string

const (
	OldestFirst Order = "oldest_first"
	NewestFirst Order = "newest_first"
)

// DefaultDelay is the pause between two deletions.
const DefaultDelay = 10 * time.Millisecond

// ParseOrder maps a config value onto an Order.
func ParseOrder(value string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(value))) {
	case OldestFirst:
		return OldestFirst, nil
	case NewestFirst, "":
		return NewestFirst, nil
	default:
		return "", fmt.Errorf("unknown prune order %q", value)
	}
}

// Deleter removes a single message.
type Deleter interface {
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// Report summarises one prune pass.
type Report struct {
	Attempted int
	Failed    int
}

// Pruner deletes a bounded window of messages preceding an anchor.
type Pruner struct {
	deleter Deleter
	order   Order
	delay   time.Duration
	log     *slog.Logger
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithOrder sets the deletion order.
func WithOrder(order Order) Option {
	return func(p *Pruner) {
		p.order = order
	}
}

// WithDelay sets the pause between deletions. Zero disables pacing.
func WithDelay(delay time.Duration) Option {
	return func(p *Pruner) {
		p.delay = delay
	}
}

// New creates a Pruner. Defaults: newest first, DefaultDelay pacing.
func New(deleter Deleter, log *slog.Logger, opts ...Option) *Pruner {
	if log == nil {
		log = slog.Default()
	}

	p := &Pruner{
		deleter: deleter,
		order:   NewestFirst,
		delay:   DefaultDelay,
		log:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Window returns the ids Prune would target, in deletion order.
func (p *Pruner) Window(anchor, window int) []int {
	if window <= 0 {
		return nil
	}

	low := max(anchor-window, 1)
	high := anchor - 1
	if high < low {
		return nil
	}

	ids := make([]int, 0, high-low+1)
	if p.order == OldestFirst {
		for id := low; id <= high; id++ {
			ids = append(ids, id)
		}
		return ids
	}

	for id := high; id >= low; id-- {
		ids = append(ids, id)
	}
	return ids
}

// Prune deletes messages [anchor-window, anchor-1] in chatID. Each deletion is
// independent and failures are logged, never returned. Cancelling ctx stops
// the remaining deletions.
func (p *Pruner) Prune(ctx context.Context, chatID int64, anchor, window int) Report {
	var report Report
	if p == nil || p.deleter == nil {
		return report
	}

	ids := p.Window(anchor, window)
	if len(ids) == 0 {
		return report
	}

	limit := rate.Inf
	if p.delay > 0 {
		limit = rate.Every(p.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	for _, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			p.log.Debug("prune interrupted", slog.Int64("chat_id", chatID), slog.Int("message_id", id), slog.Any("error", err))
			break
		}

		report.Attempted++
		if err := p.deleter.Delete(ctx, chatID, id); err != nil {
			report.Failed++
			p.log.Debug("prune delete failed", slog.Int64("chat_id", chatID), slog.Int("message_id", id), slog.Any("error", err))
		}
	}

	metrics.RecordPrune(report.Attempted, report.Failed)
	p.log.Debug("prune finished",
		slog.Int64("chat_id", chatID),
		slog.Int("anchor", anchor),
		slog.Int("window", window),
		slog.Int("attempted", report.Attempted),
		slog.Int("failed", report.Failed),
	)

	return report
}
