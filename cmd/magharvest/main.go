// Package main provides the entry point for the magharvest CLI.
//
// magharvest crawls forum boards for magnet links, either on demand or on a
// recurring schedule.
//
// Usage:
//
//	magharvest crawl --theme 36 --start-page 1 --end-page 3
//	magharvest schedule
//	magharvest tasks list
//
// See --help for all available options.
package main

// main is the entry point for magharvest.
func main() {
	Execute()
}
