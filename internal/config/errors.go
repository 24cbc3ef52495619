package config

import "errors"

// Configuration validation errors returned by Config.Validate().
//
// Design decision: Package-level sentinel errors rather than error values
// created inside Validate(), so callers can use errors.Is() while the
// messages stay human-readable.
var (
	// ErrInvalidMaxAttempts is returned when the fetch attempt budget is
	// not positive; zero attempts would skip every page.
	ErrInvalidMaxAttempts = errors.New("invalid max attempts: must be positive")

	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrInvalidDelay is returned when a delay is negative. Use 0 to
	// disable a delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidPollInterval is returned when the scheduler poll interval
	// is not positive.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")

	// ErrInvalidConcurrency is returned when the concurrent-run cap is not
	// positive; zero would admit no runs at all.
	ErrInvalidConcurrency = errors.New("invalid max concurrent runs: must be positive")

	// ErrInvalidMaxBodySize is returned when the body limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxyURL is returned when the proxy URL cannot be parsed
	// or uses a scheme other than http, https, or socks5.
	ErrInvalidProxyURL = errors.New("invalid proxy URL: must be http, https, or socks5")
)
