// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	// env files are optional
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	return LoadFile(fmt.Sprintf("./configs/%s.yaml", env), env)
}

// LoadFile reads the config at path. Environment variables override file
// values, with "." in keys replaced by "_" (bot.token -> BOT_TOKEN).
func LoadFile(path, env string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	if env != "" {
		cfg.AppEnv = env
	}

	if err := Validate(cfg); err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// Validate checks struct constraints on cfg.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// Watch re-decodes the config whenever the file changes and passes the result
// to fn. Invalid edits are reported through onError and otherwise ignored.
func Watch(v *viper.Viper, fn func(*Config), onError func(error)) {
	if v == nil || fn == nil {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err == nil {
			err = Validate(cfg)
		}
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}

		fn(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")

	v.SetDefault("bot.mode", "polling")
	v.SetDefault("bot.timeout", 10*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)

	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.pool_timeout", 4*time.Second)

	v.SetDefault("chain.timeout", 5*time.Second)
	v.SetDefault("chain.cache_ttl", 15*time.Second)

	v.SetDefault("pruner.command_window", 20)
	v.SetDefault("pruner.callback_window", 10)
	v.SetDefault("pruner.delay", 10*time.Millisecond)
	v.SetDefault("pruner.order", "newest_first")

	v.SetDefault("dialogue.backend", "memory")
	v.SetDefault("dialogue.ttl", time.Hour)
	v.SetDefault("dialogue.cleanup_interval", 10*time.Minute)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.per_user.limit", 30)
	v.SetDefault("ratelimit.per_user.window", "1m")
	v.SetDefault("ratelimit.callbacks.limit", 60)
	v.SetDefault("ratelimit.callbacks.window", "1m")

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)

	v.SetDefault("jobs.quote_refresh_spec", "@every 30s")
	v.SetDefault("jobs.concurrency", 2)

	v.SetDefault("server.addr", ":9090")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}
