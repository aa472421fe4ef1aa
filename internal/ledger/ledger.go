// Package ledger records the outcome of every application attempt so that a
// posting is never applied to twice across runs.
package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

// Repository is the ledger contract shared by the sqlite and postgres backends.
type Repository interface {
	// Record inserts an attempt. A missing ID or timestamp is filled in.
	Record(ctx context.Context, rec schemas.ApplicationRecord) error
	// HasApplied reports whether the job has a successful attempt on record.
	HasApplied(ctx context.Context, jobID string) (bool, error)
	// List returns the most recent attempts first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]schemas.ApplicationRecord, error)
	Close() error
}

// Open connects to the backend selected by cfg and ensures the schema exists.
func Open(ctx context.Context, cfg config.LedgerConfig, logger *zap.Logger) (Repository, error) {
	switch cfg.Driver {
	case config.LedgerSQLite, "":
		if dir := filepath.Dir(cfg.DSN); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create ledger directory: %w", err)
			}
		}
		return OpenSQLite(ctx, cfg.DSN, logger)
	case config.LedgerPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		l, err := NewPostgres(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", cfg.Driver)
	}
}

// prepare fills in the identity and timestamp of a record.
func prepare(rec schemas.ApplicationRecord, now func() time.Time) schemas.ApplicationRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.AttemptedAt.IsZero() {
		rec.AttemptedAt = now()
	}
	rec.AttemptedAt = rec.AttemptedAt.UTC()
	return rec
}
