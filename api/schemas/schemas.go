package schemas

import (
	"fmt"
	"strings"
	"time"
)

// WidgetKind is the classified input control category of a form section.
type WidgetKind string

const (
	KindRadio           WidgetKind = "radio"
	KindTextbox         WidgetKind = "textbox"
	KindDate            WidgetKind = "date"
	KindDropdown        WidgetKind = "dropdown"
	KindAcknowledgement WidgetKind = "acknowledgement"
	KindUnknown         WidgetKind = "unknown"
)

// String implements fmt.Stringer.
func (k WidgetKind) String() string { return string(k) }

// Persisted reports whether records of this kind can live in the answer store.
func (k WidgetKind) Persisted() bool {
	switch k {
	case KindRadio, KindTextbox, KindDate, KindDropdown:
		return true
	}
	return false
}

// HasOptions reports whether answers for this kind are chosen from a fixed option list.
func (k WidgetKind) HasOptions() bool {
	return k == KindRadio || k == KindDropdown
}

// ParseWidgetKind maps a stored type string to a WidgetKind.
func ParseWidgetKind(s string) (WidgetKind, error) {
	k := WidgetKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindRadio, KindTextbox, KindDate, KindDropdown, KindAcknowledgement:
		return k, nil
	}
	return KindUnknown, fmt.Errorf("unknown widget kind %q", s)
}

// QuestionRecord is one entry of the answer store. The question is kept in
// normalized form (whitespace collapsed, lower-cased).
type QuestionRecord struct {
	Question string     `json:"question"`
	Type     WidgetKind `json:"type"`
	Answer   string     `json:"answer"`
}

// Job identifies a single posting. It is enriched in place while the posting
// is being visited and is never persisted as a whole.
type Job struct {
	ID            string `json:"id" yaml:"id"`
	Link          string `json:"link" yaml:"link"`
	Title         string `json:"title" yaml:"title"`
	Company       string `json:"company" yaml:"company"`
	Location      string `json:"location,omitempty" yaml:"location,omitempty"`
	Description   string `json:"-" yaml:"-"`
	Summary       string `json:"-" yaml:"-"`
	RecruiterLink string `json:"-" yaml:"-"`
}

// Question is a classified form question handed to the answer resolver and generator.
type Question struct {
	// Text is the full visible text of the section; used as the cache key.
	Text string
	// Label is the section's own label when one is present.
	Label string
	Kind  WidgetKind
	// Options lists option labels in displayed order for radio and dropdown kinds.
	Options []string
	Job     *Job
}

// Prompt returns the most specific human readable wording of the question.
func (q Question) Prompt() string {
	if strings.TrimSpace(q.Label) != "" {
		return q.Label
	}
	return q.Text
}

// AnswerSource records where a resolved answer came from.
type AnswerSource string

const (
	SourceCache     AnswerSource = "cache"
	SourceGenerator AnswerSource = "generator"
	SourceDefault   AnswerSource = "default"
)

// ApplicationStatus is the outcome of a single application attempt.
type ApplicationStatus string

const (
	StatusApplied ApplicationStatus = "applied"
	StatusFailed  ApplicationStatus = "failed"
	StatusSkipped ApplicationStatus = "skipped"
)

// ApplicationRecord is a row of the application ledger.
type ApplicationRecord struct {
	ID          string            `json:"id"`
	JobID       string            `json:"job_id"`
	Link        string            `json:"link"`
	Title       string            `json:"title"`
	Company     string            `json:"company"`
	Status      ApplicationStatus `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	Pages       int               `json:"pages"`
	AttemptedAt time.Time         `json:"attempted_at"`
}
