package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magharvest/magharvest/internal/browser"
	"github.com/magharvest/magharvest/internal/extract"
	"github.com/magharvest/magharvest/internal/fetcher"
	"github.com/magharvest/magharvest/internal/model"
)

// Observer receives progress updates during a run. Updates are
// fire-and-forget with last-write-wins semantics; there is no replay.
type Observer interface {
	OnProgress(processed, total, found int)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(processed, total, found int)

// OnProgress calls f.
func (f ObserverFunc) OnProgress(processed, total, found int) {
	f(processed, total, found)
}

// SessionFactory opens a fresh browser session for one run, routed through
// the given proxy endpoint (empty for a direct connection).
type SessionFactory func(proxy string) (browser.Session, error)

// Orchestrator drives crawl runs against the task registry. One Orchestrator
// serves all runs; each run opens its own session, fetches strictly
// sequentially, and tears the session down on every exit path.
type Orchestrator struct {
	registry    *Registry
	newSession  SessionFactory
	resultsDir  string
	crawlDelay  time.Duration
	maxAttempts int
	settleDelay time.Duration
	logger      *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithCrawlDelay sets the politeness delay between topic fetches.
func WithCrawlDelay(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.crawlDelay = d
	}
}

// WithMaxAttempts sets the per-page fetch attempt budget.
func WithMaxAttempts(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.maxAttempts = n
	}
}

// WithSettleDelay sets the post-dismissal settle delay for page fetches.
func WithSettleDelay(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.settleDelay = d
	}
}

// WithLogger sets the logger for run diagnostics.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an Orchestrator writing artifacts under resultsDir.
func NewOrchestrator(registry *Registry, newSession SessionFactory, resultsDir string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:    registry,
		newSession:  newSession,
		resultsDir:  resultsDir,
		crawlDelay:  500 * time.Millisecond,
		maxAttempts: 3,
		settleDelay: 3 * time.Second,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Run executes the registered task to completion. The task moves to running
// immediately and reaches a terminal state on every exit path, including
// panics inside extraction or session code. obs may be nil.
//
// The returned error mirrors the task's failure state for the caller's own
// bookkeeping; the authoritative record is the registry.
func (o *Orchestrator) Run(ctx context.Context, taskID string, obs Observer) (err error) {
	task, err := o.registry.Get(taskID)
	if err != nil {
		return err
	}
	if err := o.registry.markRunning(taskID); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("crawl run panicked: %v", r)
			o.logger.Error("crawl run panicked", "task_id", taskID, "panic", r)
			o.registry.fail(taskID, err.Error())
		}
	}()

	session, err := o.newSession(task.Params.Proxy)
	if err != nil {
		err = fmt.Errorf("failed to open browser session: %w", err)
		o.registry.fail(taskID, err.Error())
		return err
	}
	defer session.Close()

	links, runErr := o.crawl(ctx, session, taskID, task.Params, obs)
	if runErr != nil {
		o.registry.fail(taskID, runErr.Error())
		return runErr
	}

	if len(links) == 0 {
		o.registry.appendLog(taskID, "ERROR", "no magnet links found")
		o.registry.fail(taskID, "no magnet links found")
		return fmt.Errorf("task %s: no magnet links found", taskID)
	}

	outputFile, err := o.writeArtifact(taskID, links)
	if err != nil {
		o.registry.fail(taskID, err.Error())
		return err
	}

	o.registry.appendLog(taskID, "INFO", fmt.Sprintf("found %d magnet links, saved to %s", len(links), outputFile))
	o.registry.complete(taskID, outputFile, len(links))
	return nil
}

// crawl walks the page range and returns the aggregated link set in first-seen
// order.
func (o *Orchestrator) crawl(ctx context.Context, session browser.Session, taskID string, params model.CrawlParams, obs Observer) ([]string, error) {
	theme, ok := model.ThemeByID(params.ThemeID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTheme, params.ThemeID)
	}

	f := fetcher.New(session,
		fetcher.WithMaxAttempts(o.maxAttempts),
		fetcher.WithSettleDelay(o.settleDelay),
		fetcher.WithLogger(o.logger),
	)

	o.registry.appendLog(taskID, "INFO", fmt.Sprintf("crawling theme %s (%s), pages %d to %d, mode %s",
		theme.ID, theme.Name, params.StartPage, params.EndPage, params.Mode))

	seen := make(map[string]struct{})
	var links []string
	processed, total := 0, 0

	for page := params.StartPage; page <= params.EndPage; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		indexURL := theme.IndexURL(page)
		if params.Mode == model.ModeHot {
			indexURL = theme.HotURL
		}

		markup, err := f.Fetch(ctx, indexURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.registry.appendLog(taskID, "ERROR", fmt.Sprintf("failed to load page %d: %s", page, indexURL))
			continue
		}

		topicURLs, err := extract.TopicLinks(markup)
		if err != nil {
			o.registry.appendLog(taskID, "ERROR", fmt.Sprintf("failed to parse page %d: %v", page, err))
			continue
		}
		if len(topicURLs) == 0 {
			o.registry.appendLog(taskID, "WARNING", fmt.Sprintf("no topics found on page %d", page))
			continue
		}

		total += len(topicURLs)
		o.registry.appendLog(taskID, "INFO", fmt.Sprintf("page %d: found %d topics", page, len(topicURLs)))

		for i, topicURL := range topicURLs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			o.logger.Debug("processing topic", "task_id", taskID, "page", page, "topic", i+1, "of", len(topicURLs))

			topicMarkup, err := f.Fetch(ctx, topicURL)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				o.registry.appendLog(taskID, "WARNING", fmt.Sprintf("skipping topic %s: fetch failed", topicURL))
			} else {
				found, err := extract.MagnetLinks(topicMarkup)
				if err != nil {
					o.registry.appendLog(taskID, "WARNING", fmt.Sprintf("skipping topic %s: %v", topicURL, err))
				}
				for _, link := range found {
					if _, dup := seen[link]; dup {
						continue
					}
					seen[link] = struct{}{}
					links = append(links, link)
				}
			}

			processed++
			progress := 100 * processed / total
			o.registry.setProgress(taskID, progress, total, len(links))
			if obs != nil {
				obs.OnProgress(processed, total, len(links))
			}

			if err := sleepCtx(ctx, o.crawlDelay); err != nil {
				return nil, err
			}
		}
	}

	return links, nil
}

// writeArtifact persists the link set, one URI per line, newline-terminated.
func (o *Orchestrator) writeArtifact(taskID string, links []string) (string, error) {
	if err := os.MkdirAll(o.resultsDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	path := filepath.Join(o.resultsDir, taskID+".txt")
	content := strings.Join(links, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write result artifact: %w", err)
	}
	return path, nil
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
