package config

import (
	"time"

	"github.com/Proton-105/koi-bot/pkg/redis"
)

// Config is the root configuration of the bot process.
type Config struct {
	AppEnv      string            `mapstructure:"app_env"`
	Bot         BotConfig         `mapstructure:"bot"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Sentry      SentryConfig      `mapstructure:"sentry"`
	Redis       redis.Config      `mapstructure:"redis"`
	Chain       ChainConfig       `mapstructure:"chain"`
	Pruner      PrunerConfig      `mapstructure:"pruner"`
	Dialogue    DialogueConfig    `mapstructure:"dialogue"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Jobs        JobsConfig        `mapstructure:"jobs"`
	Server      ServerConfig      `mapstructure:"server"`
}

// BotConfig configures the Telegram connection.
type BotConfig struct {
	Token         string        `mapstructure:"token" validate:"required"`
	Mode          string        `mapstructure:"mode" validate:"oneof=polling webhook"`
	Timeout       time.Duration `mapstructure:"timeout"`
	WebhookListen string        `mapstructure:"webhook_listen" validate:"required_if=Mode webhook"`
	WebhookURL    string        `mapstructure:"webhook_url" validate:"required_if=Mode webhook"`
}

// LoggerConfig configures the slog handler chain.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=text json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate" validate:"gte=0,lte=1"`
}

// ChainConfig points the quote service at the RPC endpoints.
type ChainConfig struct {
	EthRPCURL     string        `mapstructure:"eth_rpc_url" validate:"omitempty,url"`
	PolygonRPCURL string        `mapstructure:"polygon_rpc_url" validate:"omitempty,url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// PrunerConfig controls stale menu cleanup.
type PrunerConfig struct {
	CommandWindow  int           `mapstructure:"command_window" validate:"gte=0"`
	CallbackWindow int           `mapstructure:"callback_window" validate:"gte=0"`
	Delay          time.Duration `mapstructure:"delay" validate:"gte=0"`
	Order          string        `mapstructure:"order" validate:"oneof=newest_first oldest_first"`
}

// DialogueConfig selects the conversation store.
type DialogueConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=memory redis"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitRule is a limit per window, e.g. 30 per "1m".
type RateLimitRule struct {
	Limit  int    `mapstructure:"limit" validate:"gte=0"`
	Window string `mapstructure:"window"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Global    RateLimitRule `mapstructure:"global"`
	PerUser   RateLimitRule `mapstructure:"per_user"`
	Callbacks RateLimitRule `mapstructure:"callbacks"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// JobsConfig controls the background quote refresh.
type JobsConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	QuoteRefreshSpec string `mapstructure:"quote_refresh_spec"`
	Concurrency      int    `mapstructure:"concurrency" validate:"gte=0"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisEnabled reports whether a Redis address is configured.
func (c Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// IsProduction reports whether the process runs with APP_ENV=production.
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
