// File: internal/answerbank/postgres.go
package answerbank

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS answer_bank (
  q_norm     TEXT PRIMARY KEY,
  q_raw      TEXT NOT NULL,
  answer     TEXT NOT NULL,
  status     TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS profile_kv (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
`

// PgxIface is the slice of the pgx pool API the store uses. Tests substitute
// a mock pool here.
type PgxIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore is the shared-bank backend, for running several agents
// against one reviewed answer set.
type PostgresStore struct {
	pool PgxIface
}

// NewPostgres wraps an existing pool without touching the schema.
func NewPostgres(pool PgxIface) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects to the database and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not connect to bank database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("could not initialize bank schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Lookup(ctx context.Context, qNorm string) (string, bool, error) {
	e, ok, err := s.Get(ctx, qNorm)
	if err != nil || !ok {
		return "", false, err
	}
	return e.Answer, e.Answer != "", nil
}

func (s *PostgresStore) Get(ctx context.Context, qNorm string) (Entry, bool, error) {
	qNorm = strings.TrimSpace(qNorm)
	if qNorm == "" {
		return Entry{}, false, nil
	}
	var e Entry
	err := s.pool.QueryRow(ctx, `
		SELECT q_norm, q_raw, answer, status, updated_at
		FROM answer_bank WHERE q_norm = $1 LIMIT 1;
	`, qNorm).Scan(&e.QNorm, &e.QRaw, &e.Answer, &e.Status, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, e Entry) error {
	if err := validateEntry(&e); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO answer_bank (q_norm, q_raw, answer, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (q_norm) DO UPDATE SET
			q_raw = EXCLUDED.q_raw,
			answer = EXCLUDED.answer,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at;
	`, e.QNorm, e.QRaw, e.Answer, e.Status, e.UpdatedAt)
	return err
}

func (s *PostgresStore) InsertIfMissing(ctx context.Context, e Entry) (bool, error) {
	if err := validateEntry(&e); err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO answer_bank (q_norm, q_raw, answer, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (q_norm) DO NOTHING;
	`, e.QNorm, e.QRaw, e.Answer, e.Status, e.UpdatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
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
		if err := rows.Scan(&e.QNorm, &e.QRaw, &e.Answer, &e.Status, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) LoadProfile(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM profile_kv;`)
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

func (s *PostgresStore) SetProfileValue(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("profile key must not be empty")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profile_kv (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at;
	`, key, strings.TrimSpace(value))
	return err
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
