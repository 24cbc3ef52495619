package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// dbFileName is the run-history database file under the data directory.
const dbFileName = "magharvest.db"

// RunDB provides SQLite-based storage for crawl run history.
//
// Design decision: One database file for all runs rather than one per theme.
// Run history is small, append-mostly, and queried across themes; a single
// file keeps listing and backup trivial.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB under the specified directory.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Runs record one row per finished crawl execution
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		definition_id TEXT NOT NULL DEFAULT '',
		theme_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		start_page INTEGER NOT NULL,
		end_page INTEGER NOT NULL,
		status TEXT NOT NULL,
		link_count INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		output_file TEXT NOT NULL DEFAULT '',
		started_at DATETIME,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_definition ON runs(definition_id);
	CREATE INDEX IF NOT EXISTS idx_runs_theme ON runs(theme_id);
	CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord represents one finished crawl run.
type RunRecord struct {
	ID           int64
	TaskID       string
	DefinitionID string
	ThemeID      string
	Mode         string
	StartPage    int
	EndPage      int
	Status       string
	LinkCount    int
	Error        string
	OutputFile   string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// InsertRun records a finished run.
func (rdb *RunDB) InsertRun(ctx context.Context, record *RunRecord) (int64, error) {
	query := `
	INSERT INTO runs (task_id, definition_id, theme_id, mode, start_page, end_page, status, link_count, error, output_file, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := rdb.db.ExecContext(ctx, query,
		record.TaskID,
		record.DefinitionID,
		record.ThemeID,
		record.Mode,
		record.StartPage,
		record.EndPage,
		record.Status,
		record.LinkCount,
		record.Error,
		record.OutputFile,
		record.StartedAt.Format(time.RFC3339),
		record.FinishedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run record: %w", err)
	}

	return result.LastInsertId()
}

// ListRuns returns the most recent runs, newest first, up to limit.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `
	SELECT id, task_id, definition_id, theme_id, mode, start_page, end_page, status, link_count, error, output_file, started_at, finished_at
	FROM runs
	ORDER BY id DESC
	LIMIT ?
	`
	return rdb.queryRuns(ctx, query, limit)
}

// ListRunsByDefinition returns the most recent runs for one scheduled
// definition, newest first, up to limit.
func (rdb *RunDB) ListRunsByDefinition(ctx context.Context, definitionID string, limit int) ([]*RunRecord, error) {
	query := `
	SELECT id, task_id, definition_id, theme_id, mode, start_page, end_page, status, link_count, error, output_file, started_at, finished_at
	FROM runs
	WHERE definition_id = ?
	ORDER BY id DESC
	LIMIT ?
	`
	return rdb.queryRuns(ctx, query, definitionID, limit)
}

// queryRuns runs a SELECT over the runs table and scans the rows.
func (rdb *RunDB) queryRuns(ctx context.Context, query string, args ...any) ([]*RunRecord, error) {
	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*RunRecord
	for rows.Next() {
		var record RunRecord
		var startedAt, finishedAt string

		if err := rows.Scan(
			&record.ID,
			&record.TaskID,
			&record.DefinitionID,
			&record.ThemeID,
			&record.Mode,
			&record.StartPage,
			&record.EndPage,
			&record.Status,
			&record.LinkCount,
			&record.Error,
			&record.OutputFile,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}

		record.StartedAt = parseTimestamp(startedAt)
		record.FinishedAt = parseTimestamp(finishedAt)
		results = append(results, &record)
	}

	return results, rows.Err()
}

// timestampFormats are the formats SQLite may hand back depending on how the
// value was written.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05.999999999-07:00",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
