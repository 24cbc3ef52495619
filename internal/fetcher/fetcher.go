package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magharvest/magharvest/internal/browser"
)

// Age-gate markers and controls. The interstitial is recognized by the bare
// site title combined with the age prompt in the body; dismissal tries the
// styled enter button first and falls back to the English text link.
const (
	gateTitleMarker    = "SEHUATANG.ORG"
	gateBodyMarker     = "满18岁"
	gateButtonSelector = "a.enter-btn"
	gateFallbackText   = "If you are over 18"
)

// ErrFetchFailed is returned after all attempts for one page are exhausted.
// Callers treat it as a page-level skip, not a task failure.
var ErrFetchFailed = errors.New("fetch failed: attempts exhausted")

// errGatePersisted marks an attempt where the age gate survived dismissal.
// It is a soft failure: the next attempt starts immediately, without the
// transport-error backoff.
var errGatePersisted = errors.New("age gate still present after dismissal")

// Fetcher loads pages through one browser session.
type Fetcher struct {
	session     browser.Session
	maxAttempts int
	settleDelay time.Duration
	backoff     func(attempt int) time.Duration
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxAttempts sets the per-page attempt budget.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithSettleDelay sets the wait after dismissing the age gate before the
// page is re-read.
func WithSettleDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.settleDelay = d
	}
}

// WithBackoff replaces the backoff schedule. Used by tests to avoid real
// sleeps.
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(f *Fetcher) {
		f.backoff = fn
	}
}

// WithLogger sets the logger for fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher over the given session.
func New(session browser.Session, opts ...Option) *Fetcher {
	f := &Fetcher{
		session:     session,
		maxAttempts: 3,
		settleDelay: 3 * time.Second,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch loads the given URL and returns its markup.
//
// Each attempt navigates, dismisses the age gate if present, and re-reads
// the page. A persistent gate is a soft failure for that attempt; a
// transport error triggers exponential backoff before the next attempt.
// After the attempt budget is spent, ErrFetchFailed is returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		f.logger.Debug("fetching page", "url", url, "attempt", attempt, "max_attempts", f.maxAttempts)

		markup, err := f.attempt(ctx, url)
		if err == nil {
			return markup, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		if errors.Is(err, errGatePersisted) {
			f.logger.Warn("age gate persisted, retrying", "url", url, "attempt", attempt)
			continue
		}

		f.logger.Warn("fetch attempt failed", "url", url, "attempt", attempt, "error", err)
		if attempt < f.maxAttempts {
			if err := sleepCtx(ctx, f.backoff(attempt)); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, lastErr)
}

// attempt performs one navigate / gate-check / read cycle.
func (f *Fetcher) attempt(ctx context.Context, url string) (string, error) {
	if err := f.session.Navigate(ctx, url); err != nil {
		return "", err
	}

	gated, err := f.isGated()
	if err != nil {
		return "", err
	}
	if gated {
		if err := f.dismissGate(ctx); err != nil {
			return "", err
		}

		gated, err = f.isGated()
		if err != nil {
			return "", err
		}
		if gated {
			return "", errGatePersisted
		}
	}

	return f.session.Markup()
}

// isGated reports whether the current page is the age-verification
// interstitial.
func (f *Fetcher) isGated() (bool, error) {
	title, err := f.session.Title()
	if err != nil {
		return false, err
	}
	markup, err := f.session.Markup()
	if err != nil {
		return false, err
	}
	return strings.Contains(title, gateTitleMarker) && strings.Contains(markup, gateBodyMarker), nil
}

// dismissGate locates the continue control and activates it, then waits for
// the settle delay so the redirect can land before the page is re-read.
func (f *Fetcher) dismissGate(ctx context.Context) error {
	control, ok := f.session.Find(gateButtonSelector)
	if !ok {
		control, ok = f.session.FindByText(gateFallbackText)
	}
	if !ok {
		// No control to activate; the persistent-gate check decides
		// whether this attempt counts as a soft failure.
		f.logger.Warn("age gate detected but no continue control found")
		return nil
	}

	f.logger.Debug("dismissing age gate", "control", control.Text)
	if err := f.session.Activate(ctx, control); err != nil {
		return err
	}
	return sleepCtx(ctx, f.settleDelay)
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
