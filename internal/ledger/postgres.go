package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS applications (
    id           TEXT PRIMARY KEY,
    job_id       TEXT NOT NULL,
    link         TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    company      TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL,
    reason       TEXT NOT NULL DEFAULT '',
    pages        INTEGER NOT NULL DEFAULT 0,
    attempted_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS applications_job_id ON applications (job_id);`

const (
	sqlInsertApplication = `
        INSERT INTO applications (id, job_id, link, title, company, status, reason, pages, attempted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	sqlHasApplied = `SELECT EXISTS (SELECT 1 FROM applications WHERE job_id = $1 AND status = $2)`
	sqlListAll    = `
        SELECT id, job_id, link, title, company, status, reason, pages, attempted_at
        FROM applications ORDER BY attempted_at DESC`
)

// Postgres is the shared-database ledger.
type Postgres struct {
	pool DBPool
	log  *zap.Logger
	now  func() time.Time
}

// NewPostgres verifies the connection and ensures the schema exists.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*Postgres, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &Postgres{pool: pool, log: logger.Named("ledger"), now: time.Now}, nil
}

func (p *Postgres) Record(ctx context.Context, rec schemas.ApplicationRecord) error {
	rec = prepare(rec, p.now)
	_, err := p.pool.Exec(ctx, sqlInsertApplication,
		rec.ID, rec.JobID, rec.Link, rec.Title, rec.Company, string(rec.Status), rec.Reason, rec.Pages, rec.AttemptedAt)
	if err != nil {
		return fmt.Errorf("failed to record application: %w", err)
	}
	p.log.Debug("Recorded application", zap.String("job_id", rec.JobID), zap.String("status", string(rec.Status)))
	return nil
}

func (p *Postgres) HasApplied(ctx context.Context, jobID string) (bool, error) {
	var exists bool
	if err := p.pool.QueryRow(ctx, sqlHasApplied, jobID, string(schemas.StatusApplied)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return exists, nil
}

func (p *Postgres) List(ctx context.Context, limit int) ([]schemas.ApplicationRecord, error) {
	query := sqlListAll
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []schemas.ApplicationRecord
	for rows.Next() {
		var (
			rec    schemas.ApplicationRecord
			status string
		)
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.Link, &rec.Title, &rec.Company, &status, &rec.Reason, &rec.Pages, &rec.AttemptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		rec.Status = schemas.ApplicationStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
