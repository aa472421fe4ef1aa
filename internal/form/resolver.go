package form

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/answers"
)

// DateLayout is the format date answers are typed in.
const DateLayout = "01/02/2006"

// Cache is the answer store as seen by the form package.
type Cache interface {
	Find(question string, kind schemas.WidgetKind) (string, bool)
	Append(question string, kind schemas.WidgetKind, answer string) error
}

// Answer is a resolved answer and where it came from.
type Answer struct {
	Value  string
	Source schemas.AnswerSource
}

// Resolver answers classified questions from the cache, a deterministic
// default, or the generator, in that order. It never writes to the cache.
type Resolver struct {
	cache     Cache
	generator schemas.AnswerGenerator
	now       func() time.Time
	logger    *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the clock used for date answers.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a Resolver. generator may be nil, in which case every
// cache miss outside the date kind fails with ErrNoAnswer.
func NewResolver(cache Cache, generator schemas.AnswerGenerator, logger *zap.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:     cache,
		generator: generator,
		now:       time.Now,
		logger:    logger.Named("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the answer for q. Date questions always resolve to the
// current date, without consulting the cache.
func (r *Resolver) Resolve(ctx context.Context, q schemas.Question) (Answer, error) {
	if q.Kind == schemas.KindDate {
		return Answer{Value: r.now().Format(DateLayout), Source: schemas.SourceDefault}, nil
	}

	if v, ok := r.cache.Find(q.Text, q.Kind); ok {
		r.logger.Debug("Answer found in cache", zap.String("question", q.Prompt()), zap.Stringer("kind", q.Kind))
		return Answer{Value: v, Source: schemas.SourceCache}, nil
	}

	if r.generator == nil {
		return Answer{}, &ResolverError{Question: q.Prompt(), Kind: q.Kind, Err: ErrNoAnswer}
	}

	v, err := r.generator.Generate(ctx, q)
	if err != nil {
		return Answer{}, &ResolverError{Question: q.Prompt(), Kind: q.Kind, Err: err}
	}
	if strings.TrimSpace(v) == "" {
		return Answer{}, &ResolverError{Question: q.Prompt(), Kind: q.Kind, Err: ErrNoAnswer}
	}
	r.logger.Debug("Answer generated", zap.String("question", q.Prompt()), zap.Stringer("kind", q.Kind))
	return Answer{Value: strings.TrimSpace(v), Source: schemas.SourceGenerator}, nil
}

// MatchOption picks the option an answer refers to and returns its index.
// An exact match (ignoring case and surrounding punctuation) wins outright.
// Otherwise the first option, in displayed order, whose label appears as a
// whole phrase in the answer or that contains the answer as a whole phrase
// is chosen.
func MatchOption(options []string, answer string) (int, error) {
	a := normalizeChoice(answer)
	if a == "" {
		return -1, fmt.Errorf("%w: empty answer", ErrNoOptionMatch)
	}
	for i, o := range options {
		if normalizeChoice(o) == a {
			return i, nil
		}
	}
	for i, o := range options {
		n := normalizeChoice(o)
		if n == "" {
			continue
		}
		if containsPhrase(a, n) || containsPhrase(n, a) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q not in %q", ErrNoOptionMatch, answer, options)
}

func normalizeChoice(s string) string {
	s = answers.Normalize(s)
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// containsPhrase reports whether needle occurs in haystack bounded by
// non-alphanumeric runes or the ends of the string.
func containsPhrase(haystack, needle string) bool {
	for start := 0; start <= len(haystack)-len(needle); {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(needle)
		if boundaryBefore(haystack, i) && boundaryAfter(haystack, end) {
			return true
		}
		start = i + 1
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := lastRune(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := []rune(s[i:])[0]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func lastRune(s string) rune {
	r := []rune(s)
	return r[len(r)-1]
}
