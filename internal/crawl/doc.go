// Package crawl drives complete crawl runs: it owns the in-memory task
// registry and its state machine, walks board index pages over an inclusive
// page range, fetches each discovered topic page, aggregates deduplicated
// magnet links, reports progress, and persists the result artifact.
package crawl
