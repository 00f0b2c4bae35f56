package metrics

import (
	"context"
	"time"

	"github.com/Proton-105/koi-bot/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_conversations",
			Help: "Current number of tracked conversations",
		},
	)
	conversationsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversations_by_state",
			Help: "Number of conversations per dialogue state",
		},
		[]string{"state"},
	)
	pruneDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prune_deletions_total",
			Help: "Message deletions issued by the pruner labeled by outcome",
		},
		[]string{"outcome"},
	)
	quoteLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_lookups_total",
			Help: "Gas price lookups labeled by network and outcome",
		},
		[]string{"network", "outcome"},
	)
	quoteLookupDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quote_lookup_duration_seconds",
			Help:    "Duration of gas price lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"network"},
	)
	callbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callbacks_total",
			Help: "Callback taps labeled by submenu and action",
		},
		[]string{"submenu", "action"},
	)
)

var trackedStates = []state.State{
	state.StateIdle,
	state.StateAwaitingAddress,
	state.StateAwaitingTokenName,
}

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// RecordPrune counts the deletions of one prune pass.
func RecordPrune(attempted, failed int) {
	if attempted <= 0 {
		return
	}
	if failed > 0 {
		pruneDeletionsTotal.WithLabelValues("failed").Add(float64(failed))
	}
	if ok := attempted - failed; ok > 0 {
		pruneDeletionsTotal.WithLabelValues("deleted").Add(float64(ok))
	}
}

// RecordQuoteLookup tracks one gas price lookup.
func RecordQuoteLookup(network string, err error, duration time.Duration) {
	if network == "" {
		network = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	quoteLookupsTotal.WithLabelValues(network, outcome).Inc()
	quoteLookupDurationSeconds.WithLabelValues(network).Observe(duration.Seconds())
}

// RecordCallback counts a dispatched callback tap.
func RecordCallback(submenu, action string) {
	if submenu == "" {
		submenu = "none"
	}
	if action == "" {
		action = "unknown"
	}

	callbacksTotal.WithLabelValues(submenu, action).Inc()
}

// SetActiveConversations updates the gauge for tracked conversations.
func SetActiveConversations(count int) {
	activeConversations.Set(float64(count))
}

// SetConversationsByState updates the gauge for the given state.
func SetConversationsByState(state string, count int) {
	if state == "" {
		state = "unknown"
	}

	conversationsByState.WithLabelValues(state).Set(float64(count))
}

// StateCollector periodically gathers FSM state counts and emits gauge metrics.
type StateCollector struct {
	fsm state.StateMachine
}

// NewStateCollector builds a metrics collector bound to the provided FSM.
func NewStateCollector(fsm state.StateMachine) *StateCollector {
	return &StateCollector{fsm: fsm}
}

// Run polls the FSM every 10 seconds, updating conversation gauges until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	states, err := c.fsm.All(ctx)
	if err != nil {
		return err
	}

	SetActiveConversations(len(states))

	stateCounts := make(map[string]int, len(states))
	for _, st := range states {
		label := "unknown"
		if st != nil && st.State != "" {
			label = string(st.State)
		}
		stateCounts[label]++
	}

	conversationsByState.Reset()

	for _, tracked := range trackedStates {
		label := string(tracked)
		SetConversationsByState(label, stateCounts[label])
		delete(stateCounts, label)
	}

	for label, count := range stateCounts {
		SetConversationsByState(label, count)
	}

	return nil
}
