// Package database provides SQLite-based run history storage.
//
// Every finished crawl run, ad-hoc or scheduled, is recorded with its
// parameters and outcome so past runs can be inspected after the process
// that ran them is gone.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for an append-mostly history table
// 4. WAL mode provides good concurrent read performance
package database
