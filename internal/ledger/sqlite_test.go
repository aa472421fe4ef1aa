package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	l, err := OpenSQLite(ctx, ":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer l.Close()

	base := time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)
	require.NoError(t, l.Record(ctx, schemas.ApplicationRecord{
		JobID: "1", Link: "https://example.com/jobs/view/1/", Status: schemas.StatusFailed,
		Reason: "easy apply entry point not found", AttemptedAt: base,
	}))

	ok, err := l.HasApplied(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok, "failed attempts do not count as applied")

	require.NoError(t, l.Record(ctx, schemas.ApplicationRecord{
		JobID: "1", Link: "https://example.com/jobs/view/1/", Title: "SRE", Company: "Acme",
		Status: schemas.StatusApplied, Pages: 3, AttemptedAt: base.Add(time.Hour),
	}))
	ok, err = l.HasApplied(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)

	recs, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, schemas.StatusApplied, recs[0].Status, "newest first")
	assert.NotEmpty(t, recs[0].ID)
	assert.Equal(t, 3, recs[0].Pages)
	assert.True(t, base.Add(time.Hour).Equal(recs[0].AttemptedAt))

	recs, err = l.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestOpen_SQLiteCreatesDirectory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "applications.db")

	repo, err := Open(ctx, config.LedgerConfig{Driver: config.LedgerSQLite, DSN: path}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, repo.Record(ctx, schemas.ApplicationRecord{JobID: "9", Status: schemas.StatusApplied}))
	require.NoError(t, repo.Close())

	reopened, err := Open(ctx, config.LedgerConfig{Driver: config.LedgerSQLite, DSN: path}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer reopened.Close()
	ok, err := reopened.HasApplied(ctx, "9")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.LedgerConfig{Driver: "mysql"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestSQLite_ListOrdersWithinTheSameSecond(t *testing.T) {
	ctx := context.Background()
	l, err := OpenSQLite(ctx, ":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer l.Close()

	whole := time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{
		whole,
		whole.Add(100 * time.Millisecond),
		whole.Add(-time.Nanosecond),
	} {
		require.NoError(t, l.Record(ctx, schemas.ApplicationRecord{
			JobID: string(rune('a' + i)), Status: schemas.StatusApplied, AttemptedAt: at,
		}))
	}

	recs, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{recs[0].JobID, recs[1].JobID, recs[2].JobID})
	assert.True(t, whole.Add(100*time.Millisecond).Equal(recs[0].AttemptedAt))
}
