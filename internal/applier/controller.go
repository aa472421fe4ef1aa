// Package applier visits job postings and drives their Easy Apply forms,
// one job at a time.
package applier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/form"
	"github.com/xkilldash9x/easyapply-cli/internal/generator"
	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
)

// ApplicationError wraps whatever stopped an application with the job it
// belongs to.
type ApplicationError struct {
	JobID   string
	Company string
	Title   string
	Err     error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application to job %s (%s at %s) failed: %v", e.JobID, e.Title, e.Company, e.Err)
}

func (e *ApplicationError) Unwrap() error { return e.Err }

// FormRunner is the part of form.Driver the controller uses.
type FormRunner interface {
	LocateEntry(ctx context.Context) error
	Open(ctx context.Context) error
	Fill(ctx context.Context, job *schemas.Job) (*form.Result, error)
}

// Summarizer condenses a job description.
type Summarizer interface {
	Summarize(ctx context.Context, description string) (string, error)
}

// Controller runs the per-job procedure.
type Controller struct {
	page       form.Page
	form       FormRunner
	pacer      form.Pacer
	markup     form.Markup
	summarizer Summarizer
	logger     *zap.Logger
}

// NewController creates a Controller. summarizer may be nil.
func NewController(page form.Page, runner FormRunner, pacer form.Pacer, markup form.Markup, summarizer Summarizer, logger *zap.Logger) *Controller {
	return &Controller{
		page:       page,
		form:       runner,
		pacer:      pacer,
		markup:     markup,
		summarizer: summarizer,
		logger:     logger.Named("applier"),
	}
}

// Apply visits the posting, enriches job with its description, recruiter
// link and summary, and runs the form. Every failure comes back as an
// *ApplicationError. The result is nil when the form was never opened.
func (c *Controller) Apply(ctx context.Context, job *schemas.Job) (*form.Result, error) {
	logger := c.logger.With(zap.String("job_id", job.ID), zap.String("company", job.Company))
	wrap := func(err error) error {
		return &ApplicationError{JobID: job.ID, Company: job.Company, Title: job.Title, Err: err}
	}

	logger.Info("Visiting posting", zap.String("link", job.Link))
	if err := c.page.Navigate(ctx, job.Link); err != nil {
		return nil, wrap(fmt.Errorf("failed to open posting: %w", err))
	}
	if err := c.pacer.Pause(ctx, humanoid.StepLanding); err != nil {
		return nil, wrap(err)
	}

	if err := c.form.LocateEntry(ctx); err != nil {
		return nil, wrap(err)
	}

	if err := c.extractDescription(ctx, job); err != nil {
		return nil, wrap(err)
	}
	job.RecruiterLink = c.recruiterLink(ctx, logger)
	c.summarize(ctx, job, logger)

	if err := c.form.Open(ctx); err != nil {
		return nil, wrap(err)
	}
	res, err := c.form.Fill(ctx, job)
	if err != nil {
		return res, wrap(err)
	}
	return res, nil
}

func (c *Controller) extractDescription(ctx context.Context, job *schemas.Job) error {
	if more, err := c.page.Exists(ctx, c.markup.SeeMoreDescription); err == nil && more {
		if err := c.page.Click(ctx, c.markup.SeeMoreDescription); err != nil {
			c.logger.Debug("Could not expand description", zap.Error(err))
		} else if err := c.pacer.Pause(ctx, humanoid.StepClick); err != nil {
			return err
		}
	}

	raw, err := c.page.HTML(ctx, c.markup.Description)
	if err != nil {
		return &form.ExtractionError{Field: "description", Err: err}
	}
	desc := generator.DescriptionMarkdown(raw)
	if desc == "" {
		return &form.ExtractionError{Field: "description"}
	}
	job.Description = desc
	return nil
}

// recruiterLink returns the hiring team profile URL, or "" when the posting
// shows none.
func (c *Controller) recruiterLink(ctx context.Context, logger *zap.Logger) string {
	ok, err := c.page.Exists(ctx, c.markup.RecruiterLink)
	if err != nil || !ok {
		logger.Debug("No recruiter link on posting", zap.Error(err))
		return ""
	}
	href, err := c.page.Attribute(ctx, c.markup.RecruiterLink, "href")
	if err != nil {
		logger.Debug("Failed to read recruiter link", zap.Error(err))
		return ""
	}
	return href
}

func (c *Controller) summarize(ctx context.Context, job *schemas.Job, logger *zap.Logger) {
	if c.summarizer == nil {
		return
	}
	summary, err := c.summarizer.Summarize(ctx, job.Description)
	if err != nil {
		logger.Warn("Failed to summarize description, continuing without it", zap.Error(err))
		return
	}
	job.Summary = summary
}
