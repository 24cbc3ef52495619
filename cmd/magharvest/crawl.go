package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/magharvest/magharvest/internal/crawl"
	"github.com/magharvest/magharvest/internal/database"
	"github.com/magharvest/magharvest/internal/model"
	"github.com/magharvest/magharvest/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run a one-off crawl for a theme",
		Long: `Crawl fetches board index pages for one theme over an inclusive page
range, follows every topic found, and extracts magnet links into a result
file (one link per line).

Examples:
  # Crawl pages 1 to 3 of theme 36
  magharvest crawl --theme 36 --start-page 1 --end-page 3

  # Crawl the heat-ordered listing of theme 103
  magharvest crawl --theme 103 --hot

  # Route through a proxy and print a JSON report
  magharvest crawl --theme 2 --proxy socks5://127.0.0.1:1080 --json`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("theme", "t", "", "Theme id to crawl (see 'magharvest themes')")
	cmd.Flags().Bool("hot", false, "Crawl the heat-ordered listing instead of the paginated index")
	cmd.Flags().Int("start-page", 1, "First index page (inclusive)")
	cmd.Flags().Int("end-page", 1, "Last index page (inclusive)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("report-file", "o", "",
		"Write the run report to this file instead of stdout (the magnet link "+
			"result file always goes to the results directory)")

	_ = cmd.MarkFlagRequired("theme")
	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	params, err := crawlParamsFromFlags(cmd)
	if err != nil {
		return err
	}
	params.Proxy = cfg.ProxyURL

	jsonReport, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownReport, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonReport && markdownReport {
		return errors.New("--json and --markdown are mutually exclusive")
	}
	reportFile, err := cmd.Flags().GetString("report-file")
	if err != nil {
		return err
	}

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	registry := crawl.NewRegistry()
	task, err := registry.Create(params)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open run history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	logger.Info("starting crawl",
		"theme", params.ThemeID,
		"mode", params.Mode,
		"start_page", params.StartPage,
		"end_page", params.EndPage,
	)

	obs := crawl.ObserverFunc(func(processed, total, found int) {
		fmt.Fprintf(os.Stderr, "\rtopics: %d/%d  links: %d", processed, total, found)
	})

	orchestrator := newOrchestrator(cfg, registry, logger)
	runErr := orchestrator.Run(ctx, task.ID, obs)
	fmt.Fprintln(os.Stderr)

	finished, err := registry.Get(task.ID)
	if err != nil {
		return err
	}
	recordRun(context.WithoutCancel(ctx), db, finished, "", logger)

	if err := writeReport(finished, jsonReport, markdownReport, reportFile, cfg.Verbose); err != nil {
		return err
	}
	return runErr
}

// crawlParamsFromFlags builds crawl parameters from the command flags.
func crawlParamsFromFlags(cmd *cobra.Command) (model.CrawlParams, error) {
	var params model.CrawlParams
	var err error

	params.ThemeID, err = cmd.Flags().GetString("theme")
	if err != nil {
		return params, err
	}

	hot, err := cmd.Flags().GetBool("hot")
	if err != nil {
		return params, err
	}
	params.Mode = model.ModeNormal
	if hot {
		params.Mode = model.ModeHot
	}

	params.StartPage, err = cmd.Flags().GetInt("start-page")
	if err != nil {
		return params, err
	}
	params.EndPage, err = cmd.Flags().GetInt("end-page")
	if err != nil {
		return params, err
	}

	return params, nil
}

// writeReport renders the finished task in the selected format, to stdout or
// to the report file when one is given.
func writeReport(task model.CrawlTask, jsonReport, markdownReport bool, reportFile string, verbose bool) error {
	var out io.Writer = os.Stdout
	if reportFile != "" {
		if err := os.MkdirAll(filepath.Dir(reportFile), 0o750); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		f, err := os.Create(reportFile)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	var w report.Writer
	switch {
	case jsonReport:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownReport:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(verbose))
	}

	_, err := w.Write(report.NewSummary(task))
	return err
}
