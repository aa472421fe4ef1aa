package applier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/form"
	"github.com/xkilldash9x/easyapply-cli/internal/jobs"
)

func jobByID(id string) interface{} {
	return mock.MatchedBy(func(j *schemas.Job) bool { return j.ID == id })
}

func recordFor(id string, status schemas.ApplicationStatus) interface{} {
	return mock.MatchedBy(func(r schemas.ApplicationRecord) bool { return r.JobID == id && r.Status == status })
}

func newTestRunner(t *testing.T, a Applier, l Ledger, f Flusher, bl *jobs.Blacklist, limit int) *Runner {
	t.Helper()
	r := NewRunner(a, l, f, bl, limit, zaptest.NewLogger(t))
	fixed := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	return r
}

func TestRunner_Run(t *testing.T) {
	list := []schemas.Job{
		{ID: "1", Company: "Acme", Title: "Backend Engineer"},
		{ID: "2", Company: "Meta Platforms", Title: "SRE"},
		{ID: "3", Company: "Initech", Title: "Go Developer"},
		{ID: "4", Company: "Hooli", Title: "Platform Engineer"},
	}
	bl, err := jobs.NewBlacklist([]string{"meta"}, nil)
	require.NoError(t, err)

	applier := new(mockApplier)
	ledger := new(mockLedger)
	flusher := &countingFlusher{}

	ledger.On("HasApplied", mock.Anything, "1").Return(false, nil)
	ledger.On("HasApplied", mock.Anything, "3").Return(true, nil)
	ledger.On("HasApplied", mock.Anything, "4").Return(false, nil)

	applier.On("Apply", mock.Anything, jobByID("1")).Return(&form.Result{State: form.StateSubmitted, Pages: 3}, nil).Once()
	cause := &form.ValidationError{Messages: []string{"Enter a valid answer"}}
	applier.On("Apply", mock.Anything, jobByID("4")).
		Return(&form.Result{State: form.StateAborted, Pages: 1}, &ApplicationError{JobID: "4", Err: cause}).Once()

	ledger.On("Record", mock.Anything, recordFor("1", schemas.StatusApplied)).Return(nil).Once()
	ledger.On("Record", mock.Anything, recordFor("2", schemas.StatusSkipped)).Return(nil).Once()
	ledger.On("Record", mock.Anything, mock.MatchedBy(func(r schemas.ApplicationRecord) bool {
		return r.JobID == "4" && r.Status == schemas.StatusFailed && r.Reason == cause.Error() && r.Pages == 1
	})).Return(nil).Once()

	sum, err := newTestRunner(t, applier, ledger, flusher, bl, 0).Run(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Applied: 1, Failed: 1, Skipped: 2}, sum)
	assert.Equal(t, 2, flusher.flushes, "after the success and on exit")

	applier.AssertExpectations(t)
	ledger.AssertExpectations(t)
	applier.AssertNotCalled(t, "Apply", mock.Anything, jobByID("2"))
	applier.AssertNotCalled(t, "Apply", mock.Anything, jobByID("3"))
}

func TestRunner_Limit(t *testing.T) {
	list := []schemas.Job{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	applier := new(mockApplier)
	ledger := new(mockLedger)

	ledger.On("HasApplied", mock.Anything, mock.Anything).Return(false, nil)
	ledger.On("Record", mock.Anything, mock.Anything).Return(nil)
	applier.On("Apply", mock.Anything, jobByID("1")).Return(nil, errors.New("boom")).Once()
	applier.On("Apply", mock.Anything, jobByID("2")).Return(&form.Result{Pages: 1}, nil).Once()

	sum, err := newTestRunner(t, applier, ledger, &countingFlusher{}, nil, 2).Run(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Applied: 1, Failed: 1}, sum, "failed attempts count toward the limit")
	applier.AssertExpectations(t)
}

func TestRunner_LedgerErrorsAreNotFatal(t *testing.T) {
	applier := new(mockApplier)
	ledger := new(mockLedger)
	flusher := &countingFlusher{err: errors.New("disk full")}

	ledger.On("HasApplied", mock.Anything, "1").Return(false, errors.New("database is locked"))
	ledger.On("Record", mock.Anything, mock.Anything).Return(errors.New("database is locked"))
	applier.On("Apply", mock.Anything, jobByID("1")).Return(&form.Result{Pages: 1}, nil).Once()

	sum, err := newTestRunner(t, applier, ledger, flusher, nil, 0).Run(context.Background(), []schemas.Job{{ID: "1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Applied)
}

func TestRunner_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applier := new(mockApplier)
	ledger := new(mockLedger)
	flusher := &countingFlusher{}

	ledger.On("HasApplied", mock.Anything, mock.Anything).Return(false, nil)
	ledger.On("Record", mock.Anything, recordFor("1", schemas.StatusFailed)).Return(nil).Once()
	applier.On("Apply", mock.Anything, jobByID("1")).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, &ApplicationError{JobID: "1", Err: context.Canceled}).Once()

	sum, err := newTestRunner(t, applier, ledger, flusher, nil, 0).Run(ctx, []schemas.Job{{ID: "1"}, {ID: "2"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, flusher.flushes, "answers are flushed on the way out")
	applier.AssertNotCalled(t, "Apply", mock.Anything, jobByID("2"))
	ledger.AssertExpectations(t)
}

func TestFailureReason(t *testing.T) {
	cause := errors.New("answer matches no option")
	assert.Equal(t, "answer matches no option", failureReason(&ApplicationError{JobID: "1", Err: cause}))
	assert.Equal(t, "plain", failureReason(errors.New("plain")))
}
