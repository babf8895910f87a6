// Package answerbank persists the reviewed question/answer bank and the
// candidate profile key/value imprint. The engine only reads it; writes come
// from the CLI review workflow and from answers harvested after manual fills.
package answerbank

import (
	"context"
	"fmt"
	"time"

	"github.com/BondarenkoCom/applyflow/internal/config"
)

// Answer statuses. Observed answers were harvested from a manually completed
// step and await review; confirmed answers were entered or approved by the
// user.
const (
	StatusConfirmed = "confirmed"
	StatusObserved  = "observed"
)

// Entry is one bank row, keyed by the normalized question.
type Entry struct {
	QNorm     string
	QRaw      string
	Answer    string
	Status    string
	UpdatedAt time.Time
}

// Store is the persistence contract shared by the sqlite and postgres
// backends. Lookup intentionally matches the engine's Bank interface.
type Store interface {
	// Lookup returns the stored answer for a normalized question. Status is
	// not consulted: any reviewed row wins over guessing.
	Lookup(ctx context.Context, qNorm string) (string, bool, error)
	Get(ctx context.Context, qNorm string) (Entry, bool, error)
	// Upsert overwrites an existing row; used when the user confirms an
	// answer.
	Upsert(ctx context.Context, e Entry) error
	// InsertIfMissing never overwrites. Reports whether a row was inserted.
	InsertIfMissing(ctx context.Context, e Entry) (bool, error)
	List(ctx context.Context) ([]Entry, error)
	// LoadProfile returns the whole profile key/value imprint.
	LoadProfile(ctx context.Context) (map[string]string, error)
	SetProfileValue(ctx context.Context, key, value string) error
	Close() error
}

// NewFromConfig opens the backend selected by configuration.
func NewFromConfig(ctx context.Context, cfg config.BankConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return OpenSQLite(cfg.Path)
	case "postgres":
		return OpenPostgres(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported bank driver %q", cfg.Driver)
	}
}
