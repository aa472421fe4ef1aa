package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/answers"
	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
)

type driverFixture struct {
	page   *fakePage
	cache  *answers.Store
	gen    *mockGenerator
	pacer  *recordingPacer
	driver *Driver
}

func newDriverFixture(t *testing.T, logger *zap.Logger, pages ...fakeFormPage) *driverFixture {
	t.Helper()
	m := DefaultMarkup()
	f := &driverFixture{
		page:  &fakePage{markup: m, pages: pages},
		cache: answers.NewMemory(logger),
		gen:   new(mockGenerator),
		pacer: &recordingPacer{},
	}
	resolver := NewResolver(f.cache, f.gen, logger, WithClock(fixedClock))
	f.driver = NewDriver(f.page, NewClassifier(m), resolver, f.cache, f.pacer, m, DriverOptions{MaxPages: 5, EntryAttempts: 2}, logger)
	return f
}

func TestFill_TwoPageSubmission(t *testing.T) {
	m := DefaultMarkup()
	section := textSection(m, "How many years of   Go experience?")
	f := newDriverFixture(t, zaptest.NewLogger(t),
		fakeFormPage{sections: []*fakeSection{section}, action: "Continue to next step"},
		fakeFormPage{action: "Submit application"},
	)
	f.gen.On("Generate", mock.Anything, mock.MatchedBy(func(q schemas.Question) bool {
		return q.Kind == schemas.KindTextbox
	})).Return("5 years", nil).Once()

	res, err := f.driver.Fill(context.Background(), &schemas.Job{ID: "42"})
	require.NoError(t, err)

	assert.Equal(t, StateSubmitted, res.State)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "5 years", section.filled[m.TextInput])
	assert.Equal(t, []schemas.QuestionRecord{
		{Question: "how many years of go experience?", Type: schemas.KindTextbox, Answer: "5 years"},
	}, f.cache.Records())
	assert.Equal(t, []string{m.PrimaryAction, m.PrimaryAction}, f.page.clicks)
	f.gen.AssertExpectations(t)
}

func TestFill_ValidationErrorAborts(t *testing.T) {
	m := DefaultMarkup()
	core, logs := observer.New(zap.DebugLevel)
	f := newDriverFixture(t, zap.New(core),
		fakeFormPage{
			sections: []*fakeSection{textSection(m, "Phone number")},
			action:   "Next",
			errors:   []string{" Enter a valid phone number "},
		},
	)
	f.page.dismissErr = errors.New("dismiss button missing")
	f.gen.On("Generate", mock.Anything, mock.Anything).Return("n/a", nil)

	res, err := f.driver.Fill(context.Background(), nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr, "the validation error is returned, not the cleanup error")
	assert.Equal(t, []string{"Enter a valid phone number"}, verr.Messages)
	assert.NotContains(t, err.Error(), "dismiss")
	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, []string{m.PrimaryAction, m.Dismiss, m.ConfirmDiscard}, f.page.clicks)
	assert.Equal(t, 1, logs.FilterMessage("Failed to discard application").Len())
}

func TestFill_ScanWaitsForPacing(t *testing.T) {
	f := newDriverFixture(t, zaptest.NewLogger(t),
		fakeFormPage{action: "Review"},
		fakeFormPage{action: "Submit application"},
	)

	_, err := f.driver.Fill(context.Background(), nil)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(f.pacer.steps), 2)
	assert.Equal(t, []humanoid.Step{humanoid.StepClick, humanoid.StepAdvance}, f.pacer.steps[:2])
	assert.Len(t, f.page.clicks, 2)
}

func TestFill_UnknownSectionSkipped(t *testing.T) {
	m := DefaultMarkup()
	unknown := &fakeSection{markup: m, text: "Upload your resume"}
	radio := radioSection(m, "Are you authorized to work?\nYes\nNo", "Yes", "No")
	f := newDriverFixture(t, zaptest.NewLogger(t),
		fakeFormPage{sections: []*fakeSection{unknown, radio}, action: "Submit application"},
	)
	f.gen.On("Generate", mock.Anything, mock.Anything).Return("no, I am not", nil).Once()

	res, err := f.driver.Fill(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, unknown.clicked)
	assert.Equal(t, []int{1}, radio.clicked, "selects No")
	require.Equal(t, 1, f.cache.Len())
	assert.Equal(t, schemas.QuestionRecord{
		Question: "are you authorized to work? yes no",
		Type:     schemas.KindRadio,
		Answer:   "No",
	}, f.cache.Records()[0])
}

func TestFill_AcknowledgementBypassesResolver(t *testing.T) {
	m := DefaultMarkup()
	ack := &fakeSection{
		markup:  m,
		text:    "I agree to the terms of service",
		labels:  []string{"I agree to the Terms of Service"},
		options: []string{"I agree"},
	}
	f := newDriverFixture(t, zaptest.NewLogger(t),
		fakeFormPage{sections: []*fakeSection{ack}, action: "Submit application"},
	)

	res, err := f.driver.Fill(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0}, ack.clicked)
	assert.Empty(t, res.Filled)
	assert.Equal(t, 0, f.cache.Len())
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFill_DateIsNeverCached(t *testing.T) {
	m := DefaultMarkup()
	date := &fakeSection{
		markup: m,
		text:   "Earliest start date",
		labels: []string{"Earliest start date"},
		counts: map[string]int{m.DateMarker: 1, m.TextInput: 1},
	}
	f := newDriverFixture(t, zaptest.NewLogger(t),
		fakeFormPage{sections: []*fakeSection{date}, action: "Submit application"},
	)

	res, err := f.driver.Fill(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "03/07/2024", date.filled[m.DateInput])
	assert.Equal(t, schemas.SourceDefault, res.Filled[0].Source)
	assert.Equal(t, 0, f.cache.Len())
}

func TestFill_CachedAnswerNotReappended(t *testing.T) {
	m := DefaultMarkup()
	drop := &fakeSection{
		markup:        m,
		text:          "Preferred shift",
		labels:        []string{"Preferred shift"},
		selectOptions: []string{"Select an option", "Day", "Night"},
		counts:        map[string]int{m.Select: 1},
	}
	f := newDriverFixture(t, zaptest.NewLogger(t),
		fakeFormPage{sections: []*fakeSection{drop}, action: "Submit application"},
	)
	require.NoError(t, f.cache.Append("preferred shift", schemas.KindDropdown, "night"))

	_, err := f.driver.Fill(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Night", drop.chosen)
	assert.Equal(t, 1, f.cache.Len())
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFill_NoOptionMatchAborts(t *testing.T) {
	m := DefaultMarkup()
	radio := radioSection(m, "Do you have a licence?", "Yes", "No")
	f := newDriverFixture(t, zaptest.NewLogger(t),
		fakeFormPage{sections: []*fakeSection{radio}, action: "Submit application"},
	)
	f.gen.On("Generate", mock.Anything, mock.Anything).Return("Maybe", nil)

	res, err := f.driver.Fill(context.Background(), nil)

	var rerr *ResolverError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, ErrNoOptionMatch)
	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, []string{m.Dismiss, m.ConfirmDiscard}, f.page.clicks)
}

func TestFill_PageLimit(t *testing.T) {
	f := newDriverFixture(t, zaptest.NewLogger(t), fakeFormPage{action: "Next"})

	res, err := f.driver.Fill(context.Background(), nil)
	assert.ErrorIs(t, err, ErrPageLimit)
	assert.Equal(t, 5, res.Pages)
	assert.Equal(t, StateAborted, res.State)
}

func TestFill_UnfollowsCompanyBeforeSubmit(t *testing.T) {
	m := DefaultMarkup()
	f := newDriverFixture(t, zaptest.NewLogger(t), fakeFormPage{action: "Submit application"})
	f.page.followExists = true
	f.page.followChecked = true

	res, err := f.driver.Fill(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, res.State)
	assert.Equal(t, []string{m.FollowCompany, m.PrimaryAction}, f.page.clicks)
	assert.False(t, f.page.followChecked)
}

func TestFill_LeavesUncheckedFollowAlone(t *testing.T) {
	m := DefaultMarkup()
	f := newDriverFixture(t, zaptest.NewLogger(t), fakeFormPage{action: "Submit application"})
	f.page.followExists = true

	res, err := f.driver.Fill(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, res.State)
	assert.Equal(t, []string{m.PrimaryAction}, f.page.clicks, "clicking would opt back in")
}

func TestFill_CleanupSurvivesCancellation(t *testing.T) {
	m := DefaultMarkup()
	f := newDriverFixture(t, zaptest.NewLogger(t), fakeFormPage{
		sections: []*fakeSection{textSection(m, "City")},
		action:   "Next",
	})
	ctx, cancel := context.WithCancel(context.Background())
	f.gen.On("Generate", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).Return("", context.Canceled)

	_, err := f.driver.Fill(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{m.Dismiss, m.ConfirmDiscard}, f.page.clicks, "discard runs on a detached context")
}

func TestLocateEntry(t *testing.T) {
	t.Run("reloads once then succeeds", func(t *testing.T) {
		f := newDriverFixture(t, zaptest.NewLogger(t))
		f.page.entryVisible = []bool{false, true}

		require.NoError(t, f.driver.LocateEntry(context.Background()))
		assert.Equal(t, 1, f.page.reloads)
		assert.Equal(t, []humanoid.Step{humanoid.StepReload}, f.pacer.steps)
	})

	t.Run("gives up after the configured attempts", func(t *testing.T) {
		f := newDriverFixture(t, zaptest.NewLogger(t))
		f.page.entryVisible = []bool{false, false, true}

		err := f.driver.LocateEntry(context.Background())
		assert.ErrorIs(t, err, ErrEntryNotFound)
		assert.Equal(t, 2, f.page.waits)
		assert.Equal(t, 1, f.page.reloads)
	})
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateSubmitted.Terminal())
	assert.True(t, StateAborted.Terminal())
	assert.False(t, StateValidating.Terminal())
}
