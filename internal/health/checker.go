package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/telebot.v3"
)

// StatusOK is reported for components whose check passed.
const StatusOK = "OK"

const defaultTimeout = 3 * time.Second

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

// Checker aggregates health checks for multiple components.
type Checker struct {
	mu      sync.RWMutex
	log     *slog.Logger
	checks  map[string]Checkable
	timeout time.Duration
}

// NewChecker instantiates a Checker with the provided logger.
func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		log:     log,
		checks:  make(map[string]Checkable),
		timeout: defaultTimeout,
	}
}

// AddCheck registers a checkable component by name.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Check runs all registered health checks concurrently and returns their statuses.
func (c *Checker) Check(ctx context.Context) map[string]string {
	c.mu.RLock()
	checks := make(map[string]Checkable, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(checks))
	)
	for name, check := range checks {
		name, check := name, check
		wg.Add(1)
		go func() {
			defer wg.Done()

			status := StatusOK
			if err := check.HealthCheck(ctx); err != nil {
				status = err.Error()
				c.log.Error("health check failed", slog.String("component", name), slog.Any("error", err))
			}

			mu.Lock()
			results[name] = status
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results
}

// Report is the /healthz response body.
type Report struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Failing    []string          `json:"failing,omitempty"`
}

// Handler serves the aggregated status as JSON; any failing component turns the response into a 503.
func (c *Checker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		results := c.Check(r.Context())

		report := Report{Status: "ok", Components: results}
		for name, status := range results {
			if status != StatusOK {
				report.Failing = append(report.Failing, name)
			}
		}
		sort.Strings(report.Failing)

		code := http.StatusOK
		if len(report.Failing) > 0 {
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(report); err != nil {
			c.log.Warn("failed to write health report", slog.Any("error", err))
		}
	})
}

// Pinger abstracts the subset of redis.Client used for health checks.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker verifies connectivity to a Redis instance.
type RedisChecker struct {
	pinger Pinger
}

// NewRedisChecker constructs a RedisChecker.
func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

// HealthCheck issues a PING command against Redis.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

// TelegramChecker verifies that the bot identified itself against the Bot API.
type TelegramChecker struct {
	bot *telebot.Bot
}

// NewTelegramChecker constructs a TelegramChecker.
func NewTelegramChecker(bot *telebot.Bot) *TelegramChecker {
	return &TelegramChecker{bot: bot}
}

// HealthCheck ensures the underlying bot is initialized.
func (c *TelegramChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.bot == nil || c.bot.Me == nil || c.bot.Me.ID == 0 {
		return errors.New("telegram bot is not initialized or disconnected")
	}
	return nil
}

// BlockReader is the part of an RPC client the chain check needs.
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// ChainChecker verifies an RPC endpoint answers and reports a non-zero head.
type ChainChecker struct {
	name   string
	reader BlockReader
}

func NewChainChecker(name string, reader BlockReader) *ChainChecker {
	return &ChainChecker{name: name, reader: reader}
}

func (c *ChainChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.reader == nil {
		return errors.New("chain client is not configured")
	}

	height, err := c.reader.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%s rpc: %w", c.name, err)
	}
	if height == 0 {
		return fmt.Errorf("%s rpc: node reports block 0", c.name)
	}
	return nil
}
