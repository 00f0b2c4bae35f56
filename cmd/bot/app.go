package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/Proton-105/koi-bot/internal/health"
	"github.com/Proton-105/koi-bot/internal/idempotency"
	"github.com/Proton-105/koi-bot/internal/quote"
	"github.com/Proton-105/koi-bot/internal/ratelimit"
	"github.com/Proton-105/koi-bot/internal/state"
	"github.com/Proton-105/koi-bot/pkg/config"
	appredis "github.com/Proton-105/koi-bot/pkg/redis"
)

const (
	rateLimitCleanupInterval   = time.Minute
	idempotencyCleanupInterval = time.Hour
)

// components are the collaborators shared by the serve and refresh commands.
type components struct {
	cfg     *config.Config
	log     *slog.Logger
	redis   *appredis.Client
	chains  map[int64]*ethclient.Client
	quotes  *quote.Service
	checker *health.Checker
}

func newComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*components, error) {
	c := &components{
		cfg:     cfg,
		log:     log,
		chains:  make(map[int64]*ethclient.Client),
		checker: health.NewChecker(log),
	}

	if cfg.RedisEnabled() {
		rdb, err := appredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		c.redis = rdb
		c.checker.AddCheck("redis", health.NewRedisChecker(rdb))
		log.Info("redis connected", slog.String("addr", cfg.Redis.Addr))
	} else {
		log.Warn("redis not configured; rate limiting is in-process and idempotency, quote cache and jobs are disabled")
	}

	endpoints := map[quote.Network]string{
		quote.Ethereum: cfg.Chain.EthRPCURL,
		quote.Polygon:  cfg.Chain.PolygonRPCURL,
	}
	readers := make(map[int64]quote.ChainReader, len(endpoints))
	for network, url := range endpoints {
		if url == "" {
			log.Warn("no rpc endpoint configured", slog.String("network", network.Name))
			continue
		}
		client, err := quote.Dial(ctx, url)
		if err != nil {
			c.close()
			return nil, fmt.Errorf("%s: %w", network.Name, err)
		}
		c.chains[network.ChainID] = client
		readers[network.ChainID] = client
		c.checker.AddCheck("chain:"+network.Name, health.NewChainChecker(network.Name, client))
	}

	opts := []quote.Option{quote.WithTimeout(cfg.Chain.Timeout)}
	if c.redis != nil {
		opts = append(opts, quote.WithCache(quote.NewCache(c.redis.Client, cfg.Chain.CacheTTL)))
	}
	c.quotes = quote.NewService(readers, log, opts...)

	return c, nil
}

func (c *components) stateMachine() state.StateMachine {
	if c.cfg.Dialogue.Backend == "redis" && c.redis != nil {
		return state.NewStateMachine(state.NewRedisStorage(c.redis.Client, c.cfg.Dialogue.TTL, c.log), c.log)
	}
	return state.NewStateMachine(state.NewMemoryStorage(), c.log)
}

// limiter prefers Redis and falls back to the in-process limiter when Redis
// is unavailable or not configured.
func (c *components) limiter() (ratelimit.Limiter, *ratelimit.Cleaner) {
	memory := ratelimit.NewMemoryLimiter(c.log)
	maxAge := longestWindow(c.cfg.RateLimit)

	if c.redis == nil {
		return memory, ratelimit.NewCleaner(nil, c.log, rateLimitCleanupInterval).WithMemory(memory, maxAge)
	}

	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(c.redis.Client, c.log), memory, c.log)
	return limiter, ratelimit.NewCleaner(c.redis.Client, c.log, rateLimitCleanupInterval).WithMemory(memory, maxAge)
}

func (c *components) idempotency() (idempotency.Manager, *idempotency.Cleaner) {
	if c.redis == nil || !c.cfg.Idempotency.Enabled {
		return nil, nil
	}

	store := idempotency.NewRedisStore(c.redis.Client, c.log)
	cleaner := idempotency.NewCleaner(c.redis.Client, c.log, idempotencyCleanupInterval, c.cfg.Idempotency.TTL)
	return idempotency.NewManager(store, c.log), cleaner
}

// closeStorage releases the Redis pool and the RPC connections.
func (c *components) closeStorage(context.Context) error {
	c.close()
	return nil
}

func (c *components) close() {
	for _, client := range c.chains {
		client.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warn("failed to close redis", slog.Any("error", err))
		}
	}
}

func longestWindow(cfg config.RateLimitConfig) time.Duration {
	longest := time.Minute
	for _, rule := range []config.RateLimitRule{cfg.Global, cfg.PerUser, cfg.Callbacks} {
		if window, err := time.ParseDuration(rule.Window); err == nil && window > longest {
			longest = window
		}
	}
	return longest
}
