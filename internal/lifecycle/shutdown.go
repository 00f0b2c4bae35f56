package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Shutdown runs registered hooks in parallel once the process is asked to stop.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	log   *slog.Logger
}

// NewShutdown constructs a new Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named shutdown hook.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn})
}

// Execute runs every hook concurrently and waits for all of them. Failures
// are joined; a hook still running when ctx expires is reported as timed out.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	errs := make([]error, len(hooks))
	var wg sync.WaitGroup
	for i, hook := range hooks {
		i, h := i, hook
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.run(ctx, h)
		}()
	}
	wg.Wait()

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))
	return errors.Join(errs...)
}

func (s *Shutdown) run(ctx context.Context, h Hook) error {
	start := time.Now()
	s.log.Debug("running shutdown hook", slog.String("hook", h.Name))

	done := make(chan error, 1)
	go func() {
		done <- h.Fn(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("timed out: %w", ctx.Err())
	}

	if err != nil {
		s.log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
		return fmt.Errorf("%s: %w", h.Name, err)
	}

	s.log.Info("shutdown hook completed", slog.String("hook", h.Name), slog.Duration("elapsed", time.Since(start)))
	return nil
}
