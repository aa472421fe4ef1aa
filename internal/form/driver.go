package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
)

// State is a Form Driver state.
type State string

const (
	StateAwaitingEntry State = "awaiting_entry"
	StateFilling       State = "filling"
	StateValidating    State = "validating"
	StateSubmitted     State = "submitted"
	StateAborted       State = "aborted"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateAborted
}

// Pacer inserts a delay after a step. The humanoid pacer implements it.
type Pacer interface {
	Pause(ctx context.Context, step humanoid.Step) error
}

const discardTimeout = 30 * time.Second

// DriverOptions bounds the driver's loops.
type DriverOptions struct {
	MaxPages      int
	EntryAttempts int
}

// FilledQuestion records an answer that was applied to the form.
type FilledQuestion struct {
	Question string
	Kind     schemas.WidgetKind
	Answer   string
	Source   schemas.AnswerSource
}

// Result is what a single Fill run did.
type Result struct {
	State   State
	Pages   int
	Filled  []FilledQuestion
	Skipped int
}

// Driver walks an open Easy Apply form page by page. It holds no per-job
// state; each Fill call is a fresh run of the state machine.
type Driver struct {
	page       Page
	classifier *Classifier
	resolver   *Resolver
	cache      Cache
	pacer      Pacer
	markup     Markup
	opts       DriverOptions
	logger     *zap.Logger
}

// NewDriver wires a Driver. Zero options fall back to 15 pages and 2 entry attempts.
func NewDriver(page Page, classifier *Classifier, resolver *Resolver, cache Cache, pacer Pacer, markup Markup, opts DriverOptions, logger *zap.Logger) *Driver {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 15
	}
	if opts.EntryAttempts <= 0 {
		opts.EntryAttempts = 2
	}
	return &Driver{
		page:       page,
		classifier: classifier,
		resolver:   resolver,
		cache:      cache,
		pacer:      pacer,
		markup:     markup,
		opts:       opts,
		logger:     logger.Named("form"),
	}
}

// LocateEntry waits for the Easy Apply control, reloading the page between
// attempts. It returns ErrEntryNotFound once the attempts are exhausted.
func (d *Driver) LocateEntry(ctx context.Context) error {
	for attempt := 1; attempt <= d.opts.EntryAttempts; attempt++ {
		found, err := d.page.WaitFor(ctx, d.markup.EntryButton)
		if err != nil {
			return fmt.Errorf("failed waiting for entry point: %w", err)
		}
		if found {
			return nil
		}
		if attempt == d.opts.EntryAttempts {
			break
		}
		d.logger.Info("Entry point not available, reloading", zap.Int("attempt", attempt))
		if err := d.page.Reload(ctx); err != nil {
			return fmt.Errorf("failed to reload posting: %w", err)
		}
		if err := d.pacer.Pause(ctx, humanoid.StepReload); err != nil {
			return err
		}
	}
	return ErrEntryNotFound
}

// Open clicks the entry control, opening the form.
func (d *Driver) Open(ctx context.Context) error {
	if err := d.page.Click(ctx, d.markup.EntryButton); err != nil {
		return fmt.Errorf("failed to open application form: %w", err)
	}
	return d.pacer.Pause(ctx, humanoid.StepClick)
}

// Fill runs the form from its first page to submission. On any failure the
// form is discarded and the triggering error is returned with the result
// in the aborted state.
func (d *Driver) Fill(ctx context.Context, job *schemas.Job) (*Result, error) {
	res := &Result{State: StateFilling}
	logger := d.logger
	if job != nil {
		logger = logger.With(zap.String("job_id", job.ID))
	}

	for {
		if res.Pages >= d.opts.MaxPages {
			return d.abort(ctx, res, fmt.Errorf("%w (%d)", ErrPageLimit, d.opts.MaxPages))
		}
		res.Pages++
		logger.Debug("Filling page", zap.Int("page", res.Pages))

		if err := d.fillPage(ctx, job, res); err != nil {
			return d.abort(ctx, res, err)
		}

		res.State = StateValidating
		submitted, err := d.advance(ctx)
		if err != nil {
			return d.abort(ctx, res, err)
		}
		if submitted {
			res.State = StateSubmitted
			logger.Info("Application submitted", zap.Int("pages", res.Pages), zap.Int("answers", len(res.Filled)))
			return res, nil
		}
		res.State = StateFilling
	}
}

func (d *Driver) fillPage(ctx context.Context, job *schemas.Job, res *Result) error {
	sections, err := d.page.Sections(ctx, d.markup.Section)
	if err != nil {
		return fmt.Errorf("failed to enumerate form sections: %w", err)
	}
	for i, s := range sections {
		if err := d.fillSection(ctx, job, s, res); err != nil {
			return fmt.Errorf("section %d: %w", i+1, err)
		}
	}
	return nil
}

func (d *Driver) fillSection(ctx context.Context, job *schemas.Job, s Section, res *Result) error {
	shape, err := d.classifier.Inspect(ctx, s)
	if err != nil {
		return err
	}
	kind := d.classifier.Classify(shape)

	switch kind {
	case schemas.KindUnknown:
		res.Skipped++
		d.logger.Debug("Skipping unrecognised section", zap.String("text", shape.Text))
		return nil
	case schemas.KindAcknowledgement:
		if err := s.ClickNth(ctx, d.markup.Label, 0); err != nil {
			return fmt.Errorf("failed to acknowledge terms: %w", err)
		}
		return d.pacer.Pause(ctx, humanoid.StepClick)
	}

	q := Question(shape, kind, job)
	ans, err := d.resolver.Resolve(ctx, q)
	if err != nil {
		return err
	}
	stored, err := d.apply(ctx, s, q, ans.Value)
	if err != nil {
		return err
	}
	if err := d.pacer.Pause(ctx, humanoid.StepClick); err != nil {
		return err
	}

	if ans.Source == schemas.SourceGenerator {
		if err := d.cache.Append(q.Text, kind, stored); err != nil {
			d.logger.Warn("Failed to cache answer", zap.String("question", q.Prompt()), zap.Error(err))
		}
	}
	res.Filled = append(res.Filled, FilledQuestion{Question: q.Prompt(), Kind: kind, Answer: stored, Source: ans.Source})
	return nil
}

// apply enters the answer and returns the value to remember: the chosen
// option label for choice kinds, the answer itself otherwise.
func (d *Driver) apply(ctx context.Context, s Section, q schemas.Question, value string) (string, error) {
	switch q.Kind {
	case schemas.KindRadio:
		i, err := MatchOption(q.Options, value)
		if err != nil {
			return "", &ResolverError{Question: q.Prompt(), Kind: q.Kind, Err: err}
		}
		if err := s.ClickNth(ctx, d.markup.Option, i); err != nil {
			return "", fmt.Errorf("failed to select %q: %w", q.Options[i], err)
		}
		return q.Options[i], nil
	case schemas.KindDropdown:
		i, err := MatchOption(q.Options, value)
		if err != nil {
			return "", &ResolverError{Question: q.Prompt(), Kind: q.Kind, Err: err}
		}
		if err := s.Choose(ctx, d.markup.Select, q.Options[i]); err != nil {
			return "", fmt.Errorf("failed to choose %q: %w", q.Options[i], err)
		}
		return q.Options[i], nil
	case schemas.KindDate:
		if err := s.Fill(ctx, d.markup.DateInput, value); err != nil {
			return "", fmt.Errorf("failed to enter date: %w", err)
		}
		return value, nil
	case schemas.KindTextbox:
		if err := s.Fill(ctx, d.markup.TextInput, value); err != nil {
			return "", fmt.Errorf("failed to enter answer: %w", err)
		}
		return value, nil
	default:
		return "", fmt.Errorf("no handler for widget kind %s", q.Kind)
	}
}

// advance clicks the primary action. It reports true when that action was
// the final submission.
func (d *Driver) advance(ctx context.Context) (bool, error) {
	label, err := d.page.Text(ctx, d.markup.PrimaryAction)
	if err != nil {
		return false, fmt.Errorf("failed to locate primary action: %w", err)
	}

	if strings.Contains(strings.ToLower(label), strings.ToLower(d.markup.SubmitLabel)) {
		d.unfollowCompany(ctx)
		if err := d.page.Click(ctx, d.markup.PrimaryAction); err != nil {
			return false, fmt.Errorf("failed to submit application: %w", err)
		}
		if err := d.pacer.Pause(ctx, humanoid.StepClick); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := d.pacer.Pause(ctx, humanoid.StepClick); err != nil {
		return false, err
	}
	if err := d.page.Click(ctx, d.markup.PrimaryAction); err != nil {
		return false, fmt.Errorf("failed to continue: %w", err)
	}
	// The error scan must not run before the page has reacted to the click.
	if err := d.pacer.Pause(ctx, humanoid.StepAdvance); err != nil {
		return false, err
	}

	msgs, err := d.page.Texts(ctx, d.markup.ErrorFeedback)
	if err != nil {
		return false, fmt.Errorf("failed to scan for validation errors: %w", err)
	}
	if len(msgs) > 0 {
		return false, &ValidationError{Messages: trimAll(msgs)}
	}
	return false, nil
}

// unfollowCompany clicks the follow opt-in label only while its checkbox is
// checked, so an opt-in that is already off stays off.
func (d *Driver) unfollowCompany(ctx context.Context) {
	checked, err := d.page.Exists(ctx, d.markup.FollowChecked)
	if err != nil || !checked {
		return
	}
	ok, err := d.page.Exists(ctx, d.markup.FollowCompany)
	if err != nil || !ok {
		return
	}
	if err := d.page.ScrollIntoView(ctx, d.markup.FollowCompany); err != nil {
		d.logger.Debug("Could not scroll to follow opt-in", zap.Error(err))
	}
	if err := d.page.Click(ctx, d.markup.FollowCompany); err != nil {
		d.logger.Debug("Could not clear follow opt-in", zap.Error(err))
		return
	}
	_ = d.pacer.Pause(ctx, humanoid.StepClick)
}

// abort discards the open form and returns cause unchanged. Discard
// failures are logged only.
func (d *Driver) abort(ctx context.Context, res *Result, cause error) (*Result, error) {
	res.State = StateAborted
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if err := d.discard(cleanupCtx); err != nil {
		d.logger.Warn("Failed to discard application", zap.Error(err), zap.NamedError("cause", cause))
	}
	return res, cause
}

func (d *Driver) discard(ctx context.Context) error {
	var errs []error
	if err := d.page.Click(ctx, d.markup.Dismiss); err != nil {
		errs = append(errs, fmt.Errorf("dismiss: %w", err))
	}
	if err := d.pacer.Pause(ctx, humanoid.StepAdvance); err != nil {
		return errors.Join(append(errs, err)...)
	}
	if err := d.page.Click(ctx, d.markup.ConfirmDiscard); err != nil {
		errs = append(errs, fmt.Errorf("confirm discard: %w", err))
	}
	if err := d.pacer.Pause(ctx, humanoid.StepAdvance); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
