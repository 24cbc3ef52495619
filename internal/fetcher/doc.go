// Package fetcher loads individual forum pages through a browser session,
// handling the site's age-verification interstitial, retrying with
// exponential backoff on transport errors, and giving up after a bounded
// number of attempts. A fetch failure is never fatal to the caller; the
// orchestrator records it and skips the page.
package fetcher
