package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/Proton-105/koi-bot/internal/jobs"
	"github.com/Proton-105/koi-bot/internal/quote"
	"github.com/Proton-105/koi-bot/pkg/logger"
)

func newRefreshCmd() *cobra.Command {
	var inline bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Queue a quote refresh, or run one in-process with --inline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			appLog, err := logger.New(cfg.Logger, false, os.Stderr)
			if err != nil {
				return err
			}
			defer func() { _ = appLog.Close() }()
			log := appLog.Logger

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			if !inline {
				if !cfg.RedisEnabled() {
					return errors.New("queueing a refresh requires redis; use --inline")
				}
				return enqueueRefresh(ctx, cmd, cfg.Redis.AsynqOpt(), log)
			}

			deps, err := newComponents(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer deps.close()

			refreshed, err := deps.quotes.Refresh(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed %d network(s)\n%s\n", refreshed, quote.Format(deps.quotes.Snapshot(ctx)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&inline, "inline", false, "Refresh in this process instead of queueing a task.")
	return cmd
}

func enqueueRefresh(ctx context.Context, cmd *cobra.Command, redisOpt asynq.RedisConnOpt, log *slog.Logger) error {
	manager := jobs.NewManager(redisOpt, log)
	defer func() { _ = manager.Close() }()

	task, err := jobs.NewQuoteRefreshTask("cli", time.Now())
	if err != nil {
		return err
	}

	info, err := manager.Enqueue(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", jobs.TaskTypeQuoteRefresh, err)
	}
	if info == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "a refresh is already queued")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "queued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	return nil
}
