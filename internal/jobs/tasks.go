package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeQuoteRefresh        = "quote:refresh"
	TaskTypeConversationCleanup = "conversation:cleanup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// DefaultQueues weights the queues a worker pulls from.
var DefaultQueues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

// QuoteRefreshPayload names what asked for the refresh, for logs only.
type QuoteRefreshPayload struct {
	Source      string    `json:"source"`
	RequestedAt time.Time `json:"requested_at"`
}

// ConversationCleanupPayload carries the idle age after which a conversation is dropped.
type ConversationCleanupPayload struct {
	OlderThan time.Duration `json:"older_than"`
}

// NewQuoteRefreshTask builds a task that re-reads every network's quote into the cache.
// A refresh that is still queued absorbs newer requests.
func NewQuoteRefreshTask(source string, now time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(QuoteRefreshPayload{Source: source, RequestedAt: now})
	if err != nil {
		return nil, fmt.Errorf("encode quote refresh payload: %w", err)
	}

	return asynq.NewTask(TaskTypeQuoteRefresh, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Second),
		asynq.Unique(30*time.Second),
	), nil
}

func NewConversationCleanupTask(olderThan time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(ConversationCleanupPayload{OlderThan: olderThan})
	if err != nil {
		return nil, fmt.Errorf("encode conversation cleanup payload: %w", err)
	}

	return asynq.NewTask(TaskTypeConversationCleanup, payload, asynq.Queue(QueueLow), asynq.MaxRetry(0)), nil
}
