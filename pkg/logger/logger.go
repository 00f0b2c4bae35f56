// Package logger builds the process-wide slog handler chain.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/getsentry/sentry-go"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Proton-105/koi-bot/pkg/config"
)

// Logger couples a slog.Logger with the level variable it was built with,
// so the level can be changed at runtime.
type Logger struct {
	*slog.Logger
	level   *slog.LevelVar
	closers []io.Closer
}

// New creates the logger described by cfg. Records go to stdout, optionally
// to a rotated file, and error records are forwarded to Sentry when enabled.
func New(cfg config.LoggerConfig, sentryEnabled bool, stdout io.Writer) (*Logger, error) {
	if stdout == nil {
		stdout = os.Stdout
	}

	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(lvl)
	opts := &slog.HandlerOptions{Level: levelVar}

	var handlers []slog.Handler
	if cfg.Format == "json" {
		handlers = append(handlers, slog.NewJSONHandler(stdout, opts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(stdout, opts))
	}

	l := &Logger{level: levelVar}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}

		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		l.closers = append(l.closers, file)
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	if sentryEnabled {
		handlers = append(handlers, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
	}

	var root slog.Handler = handlers[0]
	if len(handlers) > 1 {
		root = newTeeHandler(handlers...)
	}

	l.Logger = slog.New(NewMaskingHandler(root))
	return l, nil
}

// SetLevel changes the minimum level of every sink.
func (l *Logger) SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.Set(lvl)
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Close flushes and closes file sinks.
func (l *Logger) Close() error {
	var errs []error
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParseLevel maps debug/info/warn/error onto slog levels. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// InitSentry configures the global Sentry client.
func InitSentry(cfg config.SentryConfig, env string) error {
	if !cfg.Enabled {
		return nil
	}

	environment := cfg.Environment
	if environment == "" {
		environment = env
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		TracesSampleRate: cfg.TracesSampleRate,
	})
}

// teeHandler fans each record out to several handlers.
type teeHandler struct {
	handlers []slog.Handler
}

func newTeeHandler(handlers ...slog.Handler) *teeHandler {
	return &teeHandler{handlers: handlers}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}
