package browser

import "context"

// Control is a page element that can be activated, typically the anchor that
// dismisses an interstitial page.
type Control struct {
	// Href is the resolved target of the control.
	Href string

	// Text is the control's visible text, used for diagnostics.
	Text string
}

// Session is one isolated page-loading session. A session belongs to exactly
// one crawl run: sessions are never shared across concurrent runs and must be
// closed on every exit path.
//
// Design decision: The interface is modeled on a browser-automation driver
// (navigate / read source / read title / find / click / quit) rather than on
// an HTTP client, so the fetcher's gate-dismissal logic stays independent of
// how pages are actually loaded.
type Session interface {
	// Navigate loads the given URL, replacing the current page.
	Navigate(ctx context.Context, rawURL string) error

	// Markup returns the markup of the current page.
	Markup() (string, error)

	// Title returns the title of the current page.
	Title() (string, error)

	// Find locates the first element matching a CSS selector.
	Find(selector string) (*Control, bool)

	// FindByText locates the first anchor whose text contains the given
	// string.
	FindByText(text string) (*Control, bool)

	// Activate follows the control, replacing the current page.
	Activate(ctx context.Context, c *Control) error

	// Close releases the session's resources. Safe to call more than once.
	Close() error
}
