// File: internal/answerbank/sqlite.go
package answerbank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS answer_bank (
  q_norm     TEXT PRIMARY KEY,
  q_raw      TEXT NOT NULL,
  answer     TEXT NOT NULL,
  status     TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profile_kv (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`

// SQLiteStore is the default single-file backend. The driver is pure Go, so
// the binary stays cgo-free.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the bank database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create bank directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open bank database: %w", err)
	}
	// Single-writer workload; WAL keeps readers unblocked during harvest
	// writes.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not configure bank database: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize bank schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, qNorm string) (string, bool, error) {
	e, ok, err := s.Get(ctx, qNorm)
	if err != nil || !ok {
		return "", false, err
	}
	return e.Answer, e.Answer != "", nil
}

func (s *SQLiteStore) Get(ctx context.Context, qNorm string) (Entry, bool, error) {
	qNorm = strings.TrimSpace(qNorm)
	if qNorm == "" {
		return Entry{}, false, nil
	}
	var e Entry
	var updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT q_norm, q_raw, answer, status, updated_at
		FROM answer_bank WHERE q_norm = ? LIMIT 1;
	`, qNorm).Scan(&e.QNorm, &e.QRaw, &e.Answer, &e.Status, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return e, true, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, e Entry) error {
	if err := validateEntry(&e); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answer_bank (q_norm, q_raw, answer, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(q_norm) DO UPDATE SET
			q_raw = excluded.q_raw,
			answer = excluded.answer,
			status = excluded.status,
			updated_at = excluded.updated_at;
	`, e.QNorm, e.QRaw, e.Answer, e.Status, e.UpdatedAt.Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) InsertIfMissing(ctx context.Context, e Entry) (bool, error) {
	if err := validateEntry(&e); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO answer_bank (q_norm, q_raw, answer, status, updated_at)
		VALUES (?, ?, ?, ?, ?);
	`, e.QNorm, e.QRaw, e.Answer, e.Status, e.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q_norm, q_raw, answer, status, updated_at
		FROM answer_bank ORDER BY q_norm;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var updated string
		if err := rows.Scan(&e.QNorm, &e.QRaw, &e.Answer, &e.Status, &updated); err != nil {
			return nil, err
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LoadProfile(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM profile_kv;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetProfileValue(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("profile key must not be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at;
	`, key, strings.TrimSpace(value), time.Now().Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func validateEntry(e *Entry) error {
	e.QNorm = strings.TrimSpace(e.QNorm)
	e.Answer = strings.TrimSpace(e.Answer)
	if e.QNorm == "" {
		return fmt.Errorf("bank entry needs a normalized question")
	}
	if e.Answer == "" {
		return fmt.Errorf("bank entry needs a non-empty answer")
	}
	if e.Status == "" {
		e.Status = StatusConfirmed
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	return nil
}
