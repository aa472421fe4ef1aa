package form

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
)

// SectionShape is the structural snapshot of a section that classification runs on.
type SectionShape struct {
	Text          string
	Labels        []string
	Options       []string
	HasDateMarker bool
	HasTextInput  bool
	HasSelect     bool
	// SelectOptions lists the dropdown's labels with the placeholder removed.
	SelectOptions []string
}

// Classifier turns live sections into widget kinds using a fixed set of
// structural predicates. Swapping the Markup retargets it without touching
// the driver.
type Classifier struct {
	markup Markup
}

// NewClassifier returns a Classifier for the given markup.
func NewClassifier(markup Markup) *Classifier {
	return &Classifier{markup: markup}
}

// Inspect reads everything classification and resolution need from a section.
func (c *Classifier) Inspect(ctx context.Context, s Section) (SectionShape, error) {
	var shape SectionShape
	var err error

	if shape.Text, err = s.Text(ctx); err != nil {
		return shape, fmt.Errorf("failed to read section text: %w", err)
	}
	if shape.Labels, err = s.Texts(ctx, c.markup.Label); err != nil {
		return shape, fmt.Errorf("failed to read section labels: %w", err)
	}
	if shape.Options, err = s.Texts(ctx, c.markup.Option); err != nil {
		return shape, fmt.Errorf("failed to read section options: %w", err)
	}
	if shape.HasDateMarker, err = c.has(ctx, s, c.markup.DateMarker); err != nil {
		return shape, err
	}
	if shape.HasTextInput, err = c.has(ctx, s, c.markup.TextInput); err != nil {
		return shape, err
	}
	if shape.HasSelect, err = c.has(ctx, s, c.markup.Select); err != nil {
		return shape, err
	}
	if shape.HasSelect {
		labels, err := s.Texts(ctx, c.markup.SelectOption)
		if err != nil {
			return shape, fmt.Errorf("failed to read dropdown options: %w", err)
		}
		for _, l := range labels {
			l = strings.TrimSpace(l)
			if l == "" || strings.EqualFold(l, c.markup.SelectPlaceholder) {
				continue
			}
			shape.SelectOptions = append(shape.SelectOptions, l)
		}
	}
	return shape, nil
}

func (c *Classifier) has(ctx context.Context, s Section, selector string) (bool, error) {
	n, err := s.Count(ctx, selector)
	if err != nil {
		return false, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	return n > 0, nil
}

// Classify applies the predicates in priority order and returns the first
// kind that matches. Date is checked before free text because a date field
// is also a text input.
func (c *Classifier) Classify(shape SectionShape) schemas.WidgetKind {
	switch {
	case c.isAcknowledgement(shape):
		return schemas.KindAcknowledgement
	case len(shape.Options) > 0:
		return schemas.KindRadio
	case shape.HasDateMarker:
		return schemas.KindDate
	case shape.HasTextInput:
		return schemas.KindTextbox
	case shape.HasSelect:
		return schemas.KindDropdown
	default:
		return schemas.KindUnknown
	}
}

func (c *Classifier) isAcknowledgement(shape SectionShape) bool {
	if len(shape.Labels) == 0 {
		return false
	}
	label := strings.ToLower(shape.Labels[0])
	for _, phrase := range c.markup.TermsPhrases {
		if strings.Contains(label, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// Question builds the resolver input for a classified section.
func Question(shape SectionShape, kind schemas.WidgetKind, job *schemas.Job) schemas.Question {
	q := schemas.Question{Text: shape.Text, Kind: kind, Job: job}
	if len(shape.Labels) > 0 {
		q.Label = strings.TrimSpace(shape.Labels[0])
	}
	switch kind {
	case schemas.KindRadio:
		q.Options = trimAll(shape.Options)
		// A radio group's labels are its options; the question lives in the section text.
		q.Label = ""
	case schemas.KindDropdown:
		q.Options = shape.SelectOptions
	}
	return q
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
