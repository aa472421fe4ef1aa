package applier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/form"
	"github.com/xkilldash9x/easyapply-cli/internal/jobs"
)

// Applier applies to a single job. Controller implements it.
type Applier interface {
	Apply(ctx context.Context, job *schemas.Job) (*form.Result, error)
}

// Ledger is the subset of ledger.Repository the runner needs.
type Ledger interface {
	Record(ctx context.Context, rec schemas.ApplicationRecord) error
	HasApplied(ctx context.Context, jobID string) (bool, error)
}

// Flusher persists learned answers.
type Flusher interface {
	Flush() error
}

// RunSummary counts the outcomes of a run.
type RunSummary struct {
	Applied int
	Failed  int
	Skipped int
}

// Runner walks a list of jobs through an Applier.
type Runner struct {
	applier   Applier
	ledger    Ledger
	answers   Flusher
	blacklist *jobs.Blacklist
	limit     int
	logger    *zap.Logger
	now       func() time.Time
}

// NewRunner creates a Runner. limit caps the number of attempts; zero means
// no limit. blacklist may be nil.
func NewRunner(applier Applier, ledger Ledger, answers Flusher, blacklist *jobs.Blacklist, limit int, logger *zap.Logger) *Runner {
	return &Runner{
		applier:   applier,
		ledger:    ledger,
		answers:   answers,
		blacklist: blacklist,
		limit:     limit,
		logger:    logger.Named("runner"),
		now:       time.Now,
	}
}

// Run applies to each job in order. A failed job is recorded and the loop
// moves on; only cancellation ends the run early, in which case ctx.Err()
// is returned. Learned answers are flushed after every success and on exit.
func (r *Runner) Run(ctx context.Context, list []schemas.Job) (RunSummary, error) {
	var sum RunSummary
	defer r.flush()

	attempts := 0
	for i := range list {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if r.limit > 0 && attempts >= r.limit {
			r.logger.Info("Application limit reached", zap.Int("limit", r.limit))
			break
		}

		job := list[i]
		logger := r.logger.With(zap.String("job_id", job.ID), zap.String("company", job.Company), zap.String("title", job.Title))

		if reason, ok := r.blacklist.Match(job); ok {
			logger.Info("Skipping blacklisted job", zap.String("reason", reason))
			r.record(ctx, job, schemas.StatusSkipped, reason, 0)
			sum.Skipped++
			continue
		}
		applied, err := r.ledger.HasApplied(ctx, job.ID)
		if err != nil {
			logger.Warn("Failed to check application history", zap.Error(err))
		}
		if applied {
			logger.Info("Skipping job already applied to")
			sum.Skipped++
			continue
		}

		attempts++
		res, err := r.applier.Apply(ctx, &job)
		pages := 0
		if res != nil {
			pages = res.Pages
		}
		if err != nil {
			sum.Failed++
			logger.Error("Application failed", zap.Error(err))
			r.record(context.WithoutCancel(ctx), job, schemas.StatusFailed, failureReason(err), pages)
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			continue
		}

		sum.Applied++
		r.record(ctx, job, schemas.StatusApplied, "", pages)
		r.flush()
	}

	r.logger.Info("Run complete",
		zap.Int("applied", sum.Applied),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped))
	return sum, nil
}

func (r *Runner) record(ctx context.Context, job schemas.Job, status schemas.ApplicationStatus, why string, pages int) {
	rec := schemas.ApplicationRecord{
		JobID:       job.ID,
		Link:        job.Link,
		Title:       job.Title,
		Company:     job.Company,
		Status:      status,
		Reason:      why,
		Pages:       pages,
		AttemptedAt: r.now(),
	}
	if err := r.ledger.Record(ctx, rec); err != nil {
		r.logger.Warn("Failed to record application", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (r *Runner) flush() {
	if r.answers == nil {
		return
	}
	if err := r.answers.Flush(); err != nil {
		r.logger.Warn("Failed to flush answer store", zap.Error(err))
	}
}

// failureReason is the ledger text for a failure: the cause without the job prefix.
func failureReason(err error) string {
	var appErr *ApplicationError
	if errors.As(err, &appErr) && appErr.Err != nil {
		return appErr.Err.Error()
	}
	return err.Error()
}
