// Package store keeps every batch outcome in an SQLite database so runs can
// be compared and queried after the fact.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/a3tai/docket-extract/internal/docket/record"
)

// ErrNotFound is returned when no outcome matches a lookup.
var ErrNotFound = errors.New("outcome not found")

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id         TEXT    NOT NULL,
	file_name      TEXT    NOT NULL,
	dialect        TEXT    NOT NULL,
	succeeded      INTEGER NOT NULL,
	failure_reason TEXT,
	warnings       INTEGER NOT NULL DEFAULT 0,
	document       TEXT,
	created_at     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS outcomes_file ON outcomes(file_name);
CREATE INDEX IF NOT EXISTS outcomes_run ON outcomes(run_id);
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Store is an SQLite outcome table. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Stored is one persisted outcome.
type Stored struct {
	RunID         string
	FileName      string
	Dialect       string
	Succeeded     bool
	FailureReason string
	Warnings      int
	Document      string
	CreatedAt     time.Time
}

// RunSummary counts the outcomes of one run.
type RunSummary struct {
	RunID     string
	Documents int
	Succeeded int
}

// Open opens or creates the database at path. ":memory:" opens a private
// in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records an outcome under runID. Successful outcomes keep their JSON
// document.
func (s *Store) Save(ctx context.Context, runID string, o record.Outcome) error {
	var doc, reason sql.NullString
	if o.Succeeded {
		data, err := record.MarshalIndent(o.Document())
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", o.FileName, err)
		}
		doc = sql.NullString{String: string(data), Valid: true}
	}
	if o.FailureReason != nil {
		reason = sql.NullString{String: *o.FailureReason, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcomes (run_id, file_name, dialect, succeeded, failure_reason, warnings, document, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.FileName, o.Dialect, o.Succeeded, reason, o.Warnings, doc,
		s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", o.FileName, err)
	}
	return nil
}

// Latest returns the most recent outcome for fileName.
func (s *Store) Latest(ctx context.Context, fileName string) (*Stored, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, file_name, dialect, succeeded, failure_reason, warnings, document, created_at
		FROM outcomes WHERE file_name = ? ORDER BY id DESC LIMIT 1`, fileName)

	var (
		out          Stored
		reason, doc  sql.NullString
		createdAtRaw string
	)
	err := row.Scan(&out.RunID, &out.FileName, &out.Dialect, &out.Succeeded, &reason, &out.Warnings, &doc, &createdAtRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", fileName, err)
	}
	out.FailureReason, out.Document = reason.String, doc.String
	if out.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAtRaw); err != nil {
		return nil, fmt.Errorf("store: bad timestamp %q: %w", createdAtRaw, err)
	}
	return &out, nil
}

// Runs summarizes every run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, COUNT(*), SUM(succeeded)
		FROM outcomes GROUP BY run_id ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("store: runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Documents, &r.Succeeded); err != nil {
			return nil, fmt.Errorf("store: runs: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
