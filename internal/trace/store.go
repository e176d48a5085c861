// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trace persists the operational audit trail of a pipeline run: one
// row per run, one row per gateway attempt, one row per stage event. The
// trace answers "which stage failed, on which call, after how many attempts"
// without re-running anything.
package trace

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "trace.db"

// Store manages the run-trace SQLite database. It implements
// gateway.AttemptLogger for the run it was opened with.
type Store struct {
	db    *sql.DB
	runID string
}

// Open opens or creates the trace database under dir and registers a new run
// with a fresh ID. The stage label names the pipeline stage this process
// executes.
func Open(dir, stage, question string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating trace directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening trace database: %w", err)
	}

	s := &Store{db: db, runID: uuid.NewString()}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating trace schema: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO runs (id, stage, question, started_at) VALUES (?, ?, ?, ?)`,
		s.runID, stage, question, now(),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunID returns the identifier assigned to this run.
func (s *Store) RunID() string { return s.runID }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			question TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			outcome TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS attempts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			op TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			delay_ms INTEGER NOT NULL,
			error TEXT,
			logged_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_run_id ON attempts(run_id)`,
		`CREATE TABLE IF NOT EXISTS events (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			event TEXT NOT NULL,
			detail TEXT,
			logged_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run_id ON events(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// LogAttempt records one gateway attempt. Trace failures must never fail the
// call they describe, so errors are reported as warnings only.
func (s *Store) LogAttempt(op string, attempt int, delay time.Duration, err error) {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	_, dbErr := s.db.Exec(
		`INSERT INTO attempts (run_id, op, attempt, delay_ms, error, logged_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.runID, op, attempt, delay.Milliseconds(), errText, now(),
	)
	if dbErr != nil {
		fmt.Fprintf(os.Stderr, "warning: trace attempt write failed: %v\n", dbErr)
	}
}

// Event records a stage-level event ("screening round 1 complete", "resume:
// checkpoint present").
func (s *Store) Event(ctx context.Context, event, detail string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, event, detail, logged_at) VALUES (?, ?, ?, ?)`,
		s.runID, event, detail, now(),
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// Finish marks the run complete with an outcome ("ok" or the failure text).
func (s *Store) Finish(ctx context.Context, outcome string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, outcome = ? WHERE id = ?`,
		now(), outcome, s.runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// AttemptRecord is one row of the attempts table.
type AttemptRecord struct {
	Op      string
	Attempt int
	DelayMS int64
	Error   string
}

// Attempts returns the attempts logged for this run, in insertion order.
func (s *Store) Attempts(ctx context.Context) ([]AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT op, attempt, delay_ms, error FROM attempts WHERE run_id = ? ORDER BY rowid`,
		s.runID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()

	var records []AttemptRecord
	for rows.Next() {
		var r AttemptRecord
		if err := rows.Scan(&r.Op, &r.Attempt, &r.DelayMS, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
