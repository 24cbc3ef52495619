package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/magharvest/magharvest/internal/browser"
	"github.com/magharvest/magharvest/internal/config"
	"github.com/magharvest/magharvest/internal/crawl"
	"github.com/magharvest/magharvest/internal/database"
	"github.com/magharvest/magharvest/internal/log"
	"github.com/magharvest/magharvest/internal/model"
	"github.com/magharvest/magharvest/internal/scheduler"
)

// buildConfig creates a Config from defaults, the optional config file, and
// command flags, in that order of precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()

	configPathFlag, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not
	// found. If no path specified, silently skip when no file exists.
	configPath := config.FindConfigFile(configPathFlag)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if configPathFlag != "" {
		return nil, fmt.Errorf("configuration file not found: %s", configPathFlag)
	}

	if cmd.Flags().Changed("proxy") {
		cfg.ProxyURL, err = cmd.Flags().GetString("proxy")
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, err = cmd.Flags().GetString("data-dir")
		if err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the credential-masking structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)
	return logger
}

// newSessionFactory returns the per-run browser session factory. Each run
// gets a fresh session; sessions are never shared across runs.
func newSessionFactory(cfg *config.Config) crawl.SessionFactory {
	return func(proxy string) (browser.Session, error) {
		return browser.NewHTTPSession(
			browser.WithProxy(proxy),
			browser.WithUserAgent(cfg.UserAgent),
			browser.WithTimeout(cfg.FetchTimeout),
			browser.WithMaxBodySize(cfg.MaxBodySize),
		)
	}
}

// newOrchestrator wires an Orchestrator for the given registry.
func newOrchestrator(cfg *config.Config, registry *crawl.Registry, logger *slog.Logger) *crawl.Orchestrator {
	return crawl.NewOrchestrator(registry, newSessionFactory(cfg), cfg.ResultsDir(),
		crawl.WithCrawlDelay(cfg.CrawlDelay),
		crawl.WithMaxAttempts(cfg.MaxAttempts),
		crawl.WithSettleDelay(cfg.SettleDelay),
		crawl.WithLogger(logger),
	)
}

// recordRun stores a finished task in the run-history database. History is
// best-effort; failures are logged, never fatal.
func recordRun(ctx context.Context, db *database.RunDB, task model.CrawlTask, definitionID string, logger *slog.Logger) {
	record := &database.RunRecord{
		TaskID:       task.ID,
		DefinitionID: definitionID,
		ThemeID:      task.Params.ThemeID,
		Mode:         string(task.Params.Mode),
		StartPage:    task.Params.StartPage,
		EndPage:      task.Params.EndPage,
		Status:       string(task.Status),
		LinkCount:    task.FoundLinks,
		Error:        task.ErrorMessage,
		OutputFile:   task.OutputFile,
	}
	if task.StartTime != nil {
		record.StartedAt = *task.StartTime
	}
	if task.EndTime != nil {
		record.FinishedAt = *task.EndTime
	}

	if _, err := db.InsertRun(ctx, record); err != nil {
		logger.Warn("failed to record run history", "task_id", task.ID, "error", err)
	}
}

// newDefinitionRunner returns the RunFunc the scheduler uses to execute a
// due definition: register a task, run the crawl with the global proxy, and
// record the outcome.
func newDefinitionRunner(cfg *config.Config, db *database.RunDB, logger *slog.Logger) scheduler.RunFunc {
	registry := crawl.NewRegistry()
	orchestrator := newOrchestrator(cfg, registry, logger)

	return func(ctx context.Context, def *model.ScheduledTask) error {
		task, err := registry.Create(def.Params(cfg.ProxyURL))
		if err != nil {
			return err
		}

		runErr := orchestrator.Run(ctx, task.ID, nil)

		if finished, err := registry.Get(task.ID); err == nil {
			recordRun(ctx, db, finished, def.ID, logger)
		}
		return runErr
	}
}

// formatTime renders an optional timestamp for listings.
func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
