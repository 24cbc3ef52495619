package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These mirror the behavior the target forum
// tolerates well; tightening the delays risks rate limiting or interstitial
// loops.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "magharvest"

	// DefaultUserAgent is sent with every page load. The forum serves a
	// reduced page to clients without a desktop browser user agent.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/139.0.0.0 Safari/537.36"

	// DefaultMaxAttempts is how many times a single page load is attempted
	// before the page is skipped.
	DefaultMaxAttempts = 3

	// DefaultFetchTimeout bounds one page load. Board pages are small;
	// anything slower than this is effectively down.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultSettleDelay is the wait after dismissing the age gate before
	// re-reading the page, giving the redirect time to land.
	DefaultSettleDelay = 3 * time.Second

	// DefaultCrawlDelay is the pause between topic page fetches within one
	// run. This bounds the request rate against the forum.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultPollInterval is how often the scheduler evaluates definitions.
	DefaultPollInterval = 60 * time.Second

	// DefaultMaxConcurrentRuns caps simultaneously executing crawls.
	// Each run owns a browser session, so this bounds both local resource
	// use and aggregate load on the forum.
	DefaultMaxConcurrentRuns = 3

	// DefaultMaxBodySize limits the response body read for one page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// scheduleFileName is the definition store document inside the data dir.
	scheduleFileName = "scheduled_tasks.json"

	// resultsDirName holds per-task link artifacts inside the data dir.
	resultsDirName = "results"
)

// Config holds all runtime options for magharvest. It is populated from
// defaults, then the optional config file, then CLI flags, and passed through
// the application by value reference rather than global state.
type Config struct {
	// ProxyURL is the global outbound proxy ("http://host:port",
	// "socks5://host:port", optionally with userinfo). Empty means direct.
	// Scheduled runs resolve their proxy from this field at execution time.
	ProxyURL string

	// UserAgent is the User-Agent header for all page loads.
	UserAgent string

	// MaxAttempts is the per-page fetch attempt budget.
	MaxAttempts int

	// FetchTimeout bounds a single page load.
	FetchTimeout time.Duration

	// SettleDelay is the post-gate-dismissal wait.
	SettleDelay time.Duration

	// CrawlDelay is the pause between topic fetches within a run.
	CrawlDelay time.Duration

	// PollInterval is the scheduler evaluation cadence.
	PollInterval time.Duration

	// MaxConcurrentRuns caps in-flight crawl executions; excess due
	// definitions queue until a slot frees.
	MaxConcurrentRuns int

	// MaxBodySize limits the response body read for one page.
	MaxBodySize int64

	// DataDir is where the definition store, the run-history database, and
	// result artifacts live. Defaults to the XDG data directory.
	DataDir string

	// Verbose enables slog.LevelDebug output.
	Verbose bool
}

// New returns a Config with all defaults applied.
//
// Design decision: A constructor rather than zero values, because most
// defaults are non-zero and the constant block above is the single place
// they are documented.
func New() *Config {
	return &Config{
		UserAgent:         DefaultUserAgent,
		MaxAttempts:       DefaultMaxAttempts,
		FetchTimeout:      DefaultFetchTimeout,
		SettleDelay:       DefaultSettleDelay,
		CrawlDelay:        DefaultCrawlDelay,
		PollInterval:      DefaultPollInterval,
		MaxConcurrentRuns: DefaultMaxConcurrentRuns,
		MaxBodySize:       DefaultMaxBodySize,
		DataDir:           XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for magharvest.
// On Linux: ~/.local/share/magharvest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for magharvest.
// On Linux: ~/.config/magharvest
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ScheduleFilePath returns the path of the scheduled-definition store.
func (c *Config) ScheduleFilePath() string {
	return filepath.Join(c.DataDir, scheduleFileName)
}

// ResultsDir returns the directory holding per-task link artifacts.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.DataDir, resultsDirName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after flag parsing, before any run begins.
func (c *Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDelay < 0 || c.SettleDelay < 0 {
		return ErrInvalidDelay
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.MaxConcurrentRuns <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ProxyURL != "" {
		u, err := url.Parse(c.ProxyURL)
		if err != nil || u.Host == "" {
			return ErrInvalidProxyURL
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return ErrInvalidProxyURL
		}
	}
	return nil
}
