// Package history keeps a per-destination SQLite ledger of completed runs.
// The ledger is informational: orchestrators append to it and the history
// subcommand reads it, but no backup or recovery decision depends on it (the
// position record alone drives the continuation protocol).
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DBFile is the ledger's filename inside a destination. A full backup purges
// it along with everything else: a fresh lineage starts a fresh ledger.
const DBFile = "history.db"

// Run statuses recorded in the ledger.
const (
	StatusOK   = "ok"   // run completed and advanced (or initialized) the position
	StatusNoop = "noop" // graceful no-op: the stored coordinate already equals the tip
)

// Run is one ledger entry.
type Run struct {
	Token      string
	Kind       string // "full" or "incremental"
	From       string // coordinate before the run, empty for full backups
	To         string // coordinate after the run
	Artifacts  int
	Status     string
	FinishedAt time.Time
}

// Store is the SQLite-backed ledger of one destination.
type Store struct {
	db *sql.DB
}

// Open creates or opens the ledger inside a destination directory.
func Open(dest string) (*Store, error) {
	db, err := sql.Open("sqlite3", filepath.Join(dest, DBFile))
	if err != nil {
		return nil, fmt.Errorf("opening history ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening history ledger: %w", err)
	}

	// One writer at a time; runs are sequential by design.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history ledger pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history ledger schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the ledger.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one run. Duplicate tokens are ignored, so re-recording after
// a crash between ledger write and process exit is harmless.
func (s *Store) Record(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (token, kind, from_coordinate, to_coordinate, artifacts, status, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, r.Token, r.Kind, r.From, r.To, r.Artifacts, r.Status, r.FinishedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Runs returns all recorded runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, kind, from_coordinate, to_coordinate, artifacts, status, finished_at
		FROM runs ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished string
		if err := rows.Scan(&r.Token, &r.Kind, &r.From, &r.To, &r.Artifacts, &r.Status, &finished); err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, finished); err == nil {
			r.FinishedAt = t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return runs, nil
}
