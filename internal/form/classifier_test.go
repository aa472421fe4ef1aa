package form

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultMarkup())

	tests := []struct {
		name  string
		shape SectionShape
		want  schemas.WidgetKind
	}{
		{
			name:  "acknowledgement beats single choice",
			shape: SectionShape{Labels: []string{"I agree to the Terms of Service"}, Options: []string{"Yes", "No"}},
			want:  schemas.KindAcknowledgement,
		},
		{
			name:  "privacy policy phrase",
			shape: SectionShape{Labels: []string{"I have read the privacy policy"}, HasTextInput: true},
			want:  schemas.KindAcknowledgement,
		},
		{
			name:  "terms phrase outside the first label is ignored",
			shape: SectionShape{Labels: []string{"Yes", "terms of use"}, Options: []string{"Yes", "No"}},
			want:  schemas.KindRadio,
		},
		{
			name:  "options make single choice",
			shape: SectionShape{Options: []string{"Yes", "No"}, HasTextInput: true},
			want:  schemas.KindRadio,
		},
		{
			name:  "date marker beats generic text input",
			shape: SectionShape{HasDateMarker: true, HasTextInput: true},
			want:  schemas.KindDate,
		},
		{
			name:  "text input",
			shape: SectionShape{HasTextInput: true, HasSelect: true},
			want:  schemas.KindTextbox,
		},
		{
			name:  "select",
			shape: SectionShape{HasSelect: true},
			want:  schemas.KindDropdown,
		},
		{
			name:  "nothing recognised",
			shape: SectionShape{Text: "Upload resume"},
			want:  schemas.KindUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.shape))
		})
	}
}

func TestInspect(t *testing.T) {
	m := DefaultMarkup()
	c := NewClassifier(m)
	s := &fakeSection{
		markup:        m,
		text:          "Preferred shift\nSelect an option\nDay\nNight",
		labels:        []string{"Preferred shift"},
		selectOptions: []string{"Select an option", " Day ", "Night", ""},
		counts:        map[string]int{m.Select: 1},
	}

	shape, err := c.Inspect(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, shape.HasSelect)
	assert.False(t, shape.HasTextInput)
	assert.Equal(t, []string{"Day", "Night"}, shape.SelectOptions)
	assert.Equal(t, schemas.KindDropdown, c.Classify(shape))

	q := Question(shape, schemas.KindDropdown, nil)
	assert.Equal(t, "Preferred shift", q.Label)
	assert.Equal(t, []string{"Day", "Night"}, q.Options)
}

func TestQuestion_RadioUsesSectionText(t *testing.T) {
	shape := SectionShape{Text: "Will you relocate?\nYes\nNo", Labels: []string{"Yes", "No"}, Options: []string{" Yes", "No "}}
	q := Question(shape, schemas.KindRadio, nil)

	assert.Empty(t, q.Label)
	assert.Equal(t, shape.Text, q.Prompt())
	assert.Equal(t, []string{"Yes", "No"}, q.Options)
}

func TestMarkupFromConfig(t *testing.T) {
	m := MarkupFromConfig(config.MarkupConfig{Section: ".section", Select: "select.custom"})
	assert.Equal(t, ".section", m.Section)
	assert.Equal(t, "select.custom", m.Select)
	assert.Equal(t, "select.custom option", m.SelectOption)
	assert.Equal(t, DefaultMarkup().Label, m.Label)
	assert.Equal(t, DefaultMarkup().TermsPhrases, m.TermsPhrases)
}
