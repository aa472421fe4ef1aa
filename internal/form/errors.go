package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
)

var (
	// ErrEntryNotFound means the Easy Apply control never became available.
	ErrEntryNotFound = errors.New("easy apply entry point not found")
	// ErrNoAnswer means neither the cache nor the generator produced an answer.
	ErrNoAnswer = errors.New("no answer available")
	// ErrNoOptionMatch means an answer matched none of the displayed options.
	ErrNoOptionMatch = errors.New("answer matches no option")
	// ErrPageLimit means the form never reached its submit page.
	ErrPageLimit = errors.New("form exceeded page limit")
)

// ExtractionError reports a required posting field that could not be read.
type ExtractionError struct {
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to extract %s", e.Field)
	}
	return fmt.Sprintf("failed to extract %s: %v", e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError carries the messages the site displayed after advancing.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("form rejected answers: %s", strings.Join(e.Messages, "; "))
}

// ResolverError reports a question that could not be answered.
type ResolverError struct {
	Question string
	Kind     schemas.WidgetKind
	Err      error
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("cannot answer %s question %q: %v", e.Kind, e.Question, e.Err)
}

func (e *ResolverError) Unwrap() error { return e.Err }
