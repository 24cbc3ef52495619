// Package model defines the core data types shared across magharvest:
// the static forum theme catalog, ad-hoc crawl tasks with their lifecycle
// state, and persisted scheduled task definitions.
package model
