// Package attemptlog records the durable outcome of every application
// attempt. One row per attempt; payload details are stored as JSON so the
// review tooling can parse missing-question lists without schema churn.
package attemptlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"github.com/BondarenkoCom/applyflow/internal/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
  id          TEXT PRIMARY KEY,
  job_url     TEXT NOT NULL,
  outcome     TEXT NOT NULL,
  reason      TEXT NOT NULL,
  step        INTEGER NOT NULL,
  payload     TEXT NOT NULL,
  started_at  TEXT NOT NULL,
  finished_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome);
CREATE INDEX IF NOT EXISTS idx_attempts_started ON attempts(started_at);
`

// Record is one persisted attempt row.
type Record struct {
	ID       string
	JobURL   string
	Outcome  string
	Reason   string
	Step     int
	Payload  engine.NeedsManualPayload
	Started  time.Time
	Finished time.Time
}

// Log is the sqlite-backed attempt journal.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the attempt journal at path.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create attempt log directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open attempt log: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not configure attempt log: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize attempt log schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Record persists one attempt result.
func (l *Log) Record(ctx context.Context, res engine.AttemptResult) error {
	payload := engine.NeedsManualPayload{
		Reason:  res.Reason,
		Step:    res.Step,
		Missing: res.Missing,
	}
	if payload.Missing == nil {
		payload.Missing = []engine.MissingQuestion{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not encode attempt payload: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO attempts (id, job_url, outcome, reason, step, payload, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`, res.AttemptID, res.JobURL, string(res.Outcome), res.Reason, res.Step, string(raw),
		res.Started.Format(time.RFC3339), res.Finished.Format(time.RFC3339))
	return err
}

// AlreadySubmitted reports whether a job URL has a prior submitted attempt.
// Used to skip URLs without opening the browser at all.
func (l *Log) AlreadySubmitted(ctx context.Context, jobURL string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM attempts WHERE job_url = ? AND outcome = 'submitted';
	`, jobURL).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Recent returns the latest attempts, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, job_url, outcome, reason, step, payload, started_at, finished_at
		FROM attempts ORDER BY started_at DESC LIMIT ?;
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var payload, started, finished string
		if err := rows.Scan(&r.ID, &r.JobURL, &r.Outcome, &r.Reason, &r.Step, &payload, &started, &finished); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
			return nil, fmt.Errorf("could not decode attempt payload for %s: %w", r.ID, err)
		}
		r.Started, _ = time.Parse(time.RFC3339, started)
		r.Finished, _ = time.Parse(time.RFC3339, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}
