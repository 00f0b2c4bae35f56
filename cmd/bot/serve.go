package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Proton-105/koi-bot/internal/bot"
	apperrors "github.com/Proton-105/koi-bot/internal/errors"
	"github.com/Proton-105/koi-bot/internal/health"
	"github.com/Proton-105/koi-bot/internal/i18n"
	"github.com/Proton-105/koi-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/koi-bot/internal/jobs/handlers"
	"github.com/Proton-105/koi-bot/internal/lifecycle"
	"github.com/Proton-105/koi-bot/internal/middleware"
	"github.com/Proton-105/koi-bot/internal/state"
	"github.com/Proton-105/koi-bot/pkg/config"
	"github.com/Proton-105/koi-bot/pkg/graceful"
	"github.com/Proton-105/koi-bot/pkg/logger"
	"github.com/Proton-105/koi-bot/pkg/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and the ops HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := logger.InitSentry(cfg.Sentry, cfg.AppEnv); err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	defer sentry.Flush(2 * time.Second)

	appLog, err := logger.New(cfg.Logger, cfg.Sentry.Enabled, os.Stdout)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = appLog.Close() }()

	log := appLog.Logger
	slog.SetDefault(log)
	log.Info("starting koi bot",
		slog.String("env", cfg.AppEnv),
		slog.String("mode", cfg.Bot.Mode),
		slog.String("dialogue_backend", cfg.Dialogue.Backend),
	)

	config.Watch(v, func(next *config.Config) {
		if strings.EqualFold(next.Logger.Level, appLog.Level().String()) {
			return
		}
		if err := appLog.SetLevel(next.Logger.Level); err != nil {
			log.Warn("ignoring log level change", slog.Any("error", err))
			return
		}
		log.Info("log level changed", slog.String("level", next.Logger.Level))
	}, func(err error) {
		log.Warn("config reload rejected", slog.Any("error", err))
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := newComponents(ctx, cfg, log)
	if err != nil {
		return err
	}

	fsm := deps.stateMachine()
	limiter, limitCleaner := deps.limiter()
	idem, idemCleaner := deps.idempotency()

	texts, err := i18n.Load("en")
	if err != nil {
		deps.close()
		return fmt.Errorf("load messages: %w", err)
	}

	b, err := bot.New(bot.Deps{
		Config:      *cfg,
		Log:         log,
		FSM:         fsm,
		Quotes:      deps.quotes,
		Limiter:     limiter,
		Idempotency: idem,
		ErrHandler:  apperrors.NewHandler(log, cfg.Sentry.Enabled),
		Texts:       texts.Translator("en"),
	})
	if err != nil {
		deps.close()
		return err
	}
	deps.checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))

	probes := lifecycle.NewProbes(readinessCheck(deps.checker), log)
	ops := graceful.NewServer(log, cfg.Server.Addr, opsHandler(deps.checker, probes, log), cfg.Server.ShutdownTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ops.ListenAndServe(gctx) })
	g.Go(func() error {
		b.Start()
		return nil
	})
	g.Go(func() error {
		metrics.NewStateCollector(fsm).Run(gctx)
		return nil
	})
	g.Go(func() error {
		limitCleaner.Run(gctx)
		return nil
	})
	if idemCleaner != nil {
		g.Go(func() error {
			idemCleaner.Run(gctx)
			return nil
		})
	}

	stopJobs, err := startJobs(cfg, deps, fsm, log)
	if err != nil {
		log.Error("background jobs disabled", slog.Any("error", err))
	}
	if stopJobs == nil {
		conversationCleaner := state.NewCleaner(fsm, log, cfg.Dialogue.TTL, cfg.Dialogue.CleanupInterval)
		g.Go(func() error {
			conversationCleaner.Run(gctx)
			return nil
		})
	}

	probes.MarkReady()
	<-gctx.Done()
	probes.MarkStopping()
	log.Info("shutdown requested", slog.Any("reason", context.Cause(gctx)))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	first := lifecycle.NewShutdown(log)
	first.Register("bot", b.Stop)
	if stopJobs != nil {
		first.Register("jobs", lifecycle.Stopper(stopJobs))
	}
	stop()
	shutdownErr := first.Execute(shutdownCtx)

	last := lifecycle.NewShutdown(log)
	last.Register("storage", deps.closeStorage)
	shutdownErr = errors.Join(shutdownErr, last.Execute(shutdownCtx))

	if err := g.Wait(); err != nil {
		return err
	}
	if shutdownErr != nil {
		return fmt.Errorf("shutdown: %w", shutdownErr)
	}

	log.Info("koi bot stopped")
	return nil
}

// startJobs runs the quote refresh worker and scheduler. It returns a nil
// stop function when jobs are disabled.
func startJobs(cfg *config.Config, deps *components, fsm state.StateMachine, log *slog.Logger) (func(), error) {
	if !cfg.Jobs.Enabled {
		return nil, nil
	}
	if deps.redis == nil {
		return nil, errors.New("jobs require redis")
	}

	redisOpt := cfg.Redis.AsynqOpt()

	worker := jobs.NewWorker(redisOpt, cfg.Jobs.Concurrency, log)
	worker.RegisterHandler(jobs.TaskTypeQuoteRefresh, jobhandlers.NewQuoteRefreshHandler(deps.quotes, log))
	worker.RegisterHandler(jobs.TaskTypeConversationCleanup,
		jobhandlers.NewConversationCleanupHandler(state.NewCleaner(fsm, log, cfg.Dialogue.TTL, cfg.Dialogue.CleanupInterval), log))

	scheduler := jobs.NewScheduler(redisOpt, jobs.ScheduleConfig{
		QuoteRefreshSpec: cfg.Jobs.QuoteRefreshSpec,
		CleanupSpec:      everySpec(cfg.Dialogue.CleanupInterval),
		ConversationTTL:  cfg.Dialogue.TTL,
	}, log)
	if err := scheduler.RegisterTasks(); err != nil {
		return nil, err
	}

	if err := worker.Start(); err != nil {
		return nil, fmt.Errorf("start jobs worker: %w", err)
	}
	scheduler.Run()

	return func() {
		scheduler.Shutdown()
		worker.Shutdown()
	}, nil
}

func everySpec(interval time.Duration) string {
	if interval <= 0 {
		return ""
	}
	return "@every " + interval.String()
}

func opsHandler(checker *health.Checker, probes *lifecycle.Probes, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", checker.Handler())
	mux.Handle("/livez", probes.LivenessHandler())
	mux.Handle("/readyz", probes.ReadinessHandler())

	return logger.Middleware(middleware.New(log)(mux))
}

func readinessCheck(checker *health.Checker) func(context.Context) error {
	return func(ctx context.Context) error {
		var failing []string
		for name, status := range checker.Check(ctx) {
			if status != health.StatusOK {
				failing = append(failing, name)
			}
		}
		if len(failing) > 0 {
			return fmt.Errorf("unhealthy: %s", strings.Join(failing, ", "))
		}
		return nil
	}
}
