package form

import (
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

// Markup holds the selectors used to recognise page structure. Selectors
// starting with "/" are XPath; everything else is CSS. Section relative
// selectors (Label, Option, DateMarker, DateInput, TextInput, Select,
// SelectOption) must be CSS.
type Markup struct {
	EntryButton        string
	SeeMoreDescription string
	Description        string
	RecruiterLink      string

	Section      string
	Label        string
	Option       string
	DateMarker   string
	DateInput    string
	TextInput    string
	Select       string
	SelectOption string

	PrimaryAction  string
	SubmitLabel    string
	FollowCompany  string
	// FollowChecked matches the follow opt-in only while it is checked.
	FollowChecked  string
	ErrorFeedback  string
	Dismiss        string
	ConfirmDiscard string

	TermsPhrases      []string
	SelectPlaceholder string
}

// DefaultMarkup returns the selectors for the current Easy Apply markup.
func DefaultMarkup() Markup {
	return Markup{
		EntryButton:        `//button[contains(@class, "jobs-apply-button") and contains(., "Easy Apply")]`,
		SeeMoreDescription: `//button[@aria-label="Click to see more description"]`,
		Description:        `.jobs-description-content__text`,
		RecruiterLink:      `//h2[text()="Meet the hiring team"]/following::a[contains(@href, "linkedin.com/in/")]`,

		Section:      `.jobs-easy-apply-form-section__grouping`,
		Label:        `label`,
		Option:       `.fb-text-selectable__option`,
		DateMarker:   `.artdeco-datepicker, input[type="date"], input[placeholder*="mm/dd/yyyy" i]`,
		DateInput:    `input`,
		TextInput:    `input[type="text"], input[type="number"], input[type="tel"], input[type="email"], input:not([type]), textarea`,
		Select:       `select`,
		SelectOption: `select option`,

		PrimaryAction:  `.artdeco-modal .artdeco-button--primary`,
		SubmitLabel:    "submit application",
		FollowCompany:  `//label[contains(., "to stay up to date with their page.")]`,
		FollowChecked:  `input#follow-company-checkbox:checked`,
		ErrorFeedback:  `.artdeco-inline-feedback--error`,
		Dismiss:        `.artdeco-modal__dismiss`,
		ConfirmDiscard: `.artdeco-modal__confirm-dialog-btn`,

		TermsPhrases:      []string{"terms of service", "privacy policy", "terms of use"},
		SelectPlaceholder: "select an option",
	}
}

// MarkupFromConfig overlays configured selectors on the defaults.
func MarkupFromConfig(c config.MarkupConfig) Markup {
	m := DefaultMarkup()
	overlay := []struct {
		dst *string
		src string
	}{
		{&m.EntryButton, c.EntryButton},
		{&m.SeeMoreDescription, c.SeeMoreDescription},
		{&m.Description, c.Description},
		{&m.RecruiterLink, c.RecruiterLink},
		{&m.Section, c.Section},
		{&m.Label, c.Label},
		{&m.Option, c.Option},
		{&m.DateMarker, c.DateMarker},
		{&m.DateInput, c.DateInput},
		{&m.TextInput, c.TextInput},
		{&m.Select, c.Select},
		{&m.PrimaryAction, c.PrimaryAction},
		{&m.SubmitLabel, c.SubmitLabel},
		{&m.FollowCompany, c.FollowCompany},
		{&m.FollowChecked, c.FollowChecked},
		{&m.ErrorFeedback, c.ErrorFeedback},
		{&m.Dismiss, c.Dismiss},
		{&m.ConfirmDiscard, c.ConfirmDiscard},
	}
	for _, o := range overlay {
		if o.src != "" {
			*o.dst = o.src
		}
	}
	if c.Select != "" {
		m.SelectOption = c.Select + " option"
	}
	if len(c.TermsPhrases) > 0 {
		m.TermsPhrases = c.TermsPhrases
	}
	return m
}
