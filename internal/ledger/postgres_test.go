package ledger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
)

// flexibleSQLMatcher creates a regex that is insensitive to whitespace for more robust SQL mock testing.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockLedger(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)

	mockPool.ExpectPing()
	mockPool.ExpectExec("CREATE TABLE IF NOT EXISTS applications").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	l, err := NewPostgres(context.Background(), mockPool, zap.NewNop())
	require.NoError(t, err)
	return l, mockPool
}

func TestNewPostgres(t *testing.T) {
	t.Run("should return error if ping fails", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		pingErr := errors.New("database unavailable")
		mockPool.ExpectPing().WillReturnError(pingErr)

		_, err = NewPostgres(context.Background(), mockPool, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, pingErr, "Error from ping should be propagated")
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("should create the schema", func(t *testing.T) {
		_, mockPool := newMockLedger(t)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgres_Record(t *testing.T) {
	l, mockPool := newMockLedger(t)
	fixed := time.Date(2024, 3, 7, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	l.now = func() time.Time { return fixed }

	mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertApplication)).
		WithArgs(pgxmock.AnyArg(), "4012345678", "https://example.com/jobs/view/4012345678/", "Backend Engineer", "Acme",
			"failed", "form rejected answers: required", 2, fixed.UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := l.Record(context.Background(), schemas.ApplicationRecord{
		JobID:   "4012345678",
		Link:    "https://example.com/jobs/view/4012345678/",
		Title:   "Backend Engineer",
		Company: "Acme",
		Status:  schemas.StatusFailed,
		Reason:  "form rejected answers: required",
		Pages:   2,
	})
	require.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgres_RecordError(t *testing.T) {
	l, mockPool := newMockLedger(t)
	dbErr := errors.New("unique violation")
	mockPool.ExpectExec(flexibleSQLMatcher(sqlInsertApplication)).WillReturnError(dbErr)

	err := l.Record(context.Background(), schemas.ApplicationRecord{ID: "a", JobID: "1", Status: schemas.StatusApplied})
	assert.ErrorIs(t, err, dbErr)
}

func TestPostgres_HasApplied(t *testing.T) {
	l, mockPool := newMockLedger(t)
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlHasApplied)).
		WithArgs("4012345678", "applied").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := l.HasApplied(context.Background(), "4012345678")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgres_List(t *testing.T) {
	l, mockPool := newMockLedger(t)
	at := time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC)
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlListAll + ` LIMIT $1`)).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "job_id", "link", "title", "company", "status", "reason", "pages", "attempted_at"}).
			AddRow("a1", "1", "https://example.com/jobs/view/1/", "SRE", "Acme", "applied", "", 3, at))

	recs, err := l.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, schemas.StatusApplied, recs[0].Status)
	assert.Equal(t, 3, recs[0].Pages)
	assert.True(t, at.Equal(recs[0].AttemptedAt))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
