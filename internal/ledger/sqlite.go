package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS applications (
	id           TEXT PRIMARY KEY,
	job_id       TEXT NOT NULL,
	link         TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	company      TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	pages        INTEGER NOT NULL DEFAULT 0,
	attempted_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS applications_job_id ON applications (job_id);`

// timestampLayout has a fixed width so that attempted_at sorts
// chronologically as text. Values are always stored in UTC.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is the file backed ledger.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory ledger.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping ledger: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &SQLite{db: db, log: logger.Named("ledger"), now: time.Now}, nil
}

func (s *SQLite) Record(ctx context.Context, rec schemas.ApplicationRecord) error {
	rec = prepare(rec, s.now)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (id, job_id, link, title, company, status, reason, pages, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.JobID, rec.Link, rec.Title, rec.Company, string(rec.Status), rec.Reason, rec.Pages,
		rec.AttemptedAt.Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record application: %w", err)
	}
	s.log.Debug("Recorded application", zap.String("job_id", rec.JobID), zap.String("status", string(rec.Status)))
	return nil
}

func (s *SQLite) HasApplied(ctx context.Context, jobID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE job_id = ? AND status = ?)`,
		jobID, string(schemas.StatusApplied),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return exists, nil
}

func (s *SQLite) List(ctx context.Context, limit int) ([]schemas.ApplicationRecord, error) {
	query := `SELECT id, job_id, link, title, company, status, reason, pages, attempted_at
	          FROM applications ORDER BY attempted_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []schemas.ApplicationRecord
	for rows.Next() {
		var (
			rec       schemas.ApplicationRecord
			status    string
			attempted string
		)
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.Link, &rec.Title, &rec.Company, &status, &rec.Reason, &rec.Pages, &attempted); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		rec.Status = schemas.ApplicationStatus(status)
		if rec.AttemptedAt, err = time.Parse(timestampLayout, attempted); err != nil {
			return nil, fmt.Errorf("invalid timestamp for %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
