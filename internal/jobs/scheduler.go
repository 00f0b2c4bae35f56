package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultQuoteRefreshSpec keeps the cached quotes fresher than the default cache TTL.
const DefaultQuoteRefreshSpec = "@every 30s"

type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

// ScheduleConfig lists the periodic tasks. An empty spec disables the task.
type ScheduleConfig struct {
	QuoteRefreshSpec string
	CleanupSpec      string
	ConversationTTL  time.Duration
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	cfg            ScheduleConfig
	log            *slog.Logger
}

func NewScheduler(redisOpt asynq.RedisConnOpt, cfg ScheduleConfig, log *slog.Logger) Scheduler {
	if log == nil {
		log = slog.Default()
	}

	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, nil),
		cfg:            cfg,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	if s.cfg.QuoteRefreshSpec != "" {
		task, err := NewQuoteRefreshTask("scheduler", time.Time{})
		if err != nil {
			return err
		}
		if _, err := s.asynqScheduler.Register(s.cfg.QuoteRefreshSpec, task); err != nil {
			return fmt.Errorf("register %s: %w", TaskTypeQuoteRefresh, err)
		}
		s.log.Info("scheduler: registered task", slog.String("task", TaskTypeQuoteRefresh), slog.String("spec", s.cfg.QuoteRefreshSpec))
	}

	if s.cfg.CleanupSpec != "" && s.cfg.ConversationTTL > 0 {
		task, err := NewConversationCleanupTask(s.cfg.ConversationTTL)
		if err != nil {
			return err
		}
		if _, err := s.asynqScheduler.Register(s.cfg.CleanupSpec, task); err != nil {
			return fmt.Errorf("register %s: %w", TaskTypeConversationCleanup, err)
		}
		s.log.Info("scheduler: registered task", slog.String("task", TaskTypeConversationCleanup), slog.String("spec", s.cfg.CleanupSpec))
	}

	return nil
}

func (s *scheduler) Run() {
	s.log.Info("scheduler: starting")

	go func() {
		if err := s.asynqScheduler.Run(); err != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", slog.Any("error", err))
		}
	}()
}

func (s *scheduler) Shutdown() {
	s.log.Info("scheduler: shutting down")
	s.asynqScheduler.Shutdown()
}
