package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/magharvest/magharvest/internal/database"
	"github.com/magharvest/magharvest/internal/scheduler"
)

// NewScheduleCmd creates the schedule command.
func NewScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the recurring-task scheduler in the foreground",
		Long: `Schedule runs the poll loop that executes recurring crawl definitions.

Definitions are managed with 'magharvest tasks' and persisted under the data
directory, so they can be edited while the daemon is stopped. Due definitions
fire once per poll; a definition that became due while the daemon was down
fires immediately on the next poll without catching up missed occurrences.

The daemon runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runScheduleCmd,
	}
}

// runScheduleCmd executes the schedule command.
func runScheduleCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open run history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	sched := scheduler.New(
		scheduler.NewStore(cfg.ScheduleFilePath()),
		newDefinitionRunner(cfg, db, logger),
		scheduler.WithPollInterval(cfg.PollInterval),
		scheduler.WithMaxConcurrentRuns(cfg.MaxConcurrentRuns),
		scheduler.WithLogger(logger),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, stopping scheduler...")
		cancel()
	}()

	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
