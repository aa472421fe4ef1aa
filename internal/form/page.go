package form

import (
	"context"
)

// Page is the live document of an authenticated browser session.
// Selector arguments follow the Markup conventions.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	// WaitFor waits up to the session's element timeout for a visible match.
	// A timeout is reported as (false, nil).
	WaitFor(ctx context.Context, selector string) (bool, error)
	// Exists reports whether a match is present right now.
	Exists(ctx context.Context, selector string) (bool, error)
	ScrollIntoView(ctx context.Context, selector string) error
	// Click clicks the first match.
	Click(ctx context.Context, selector string) error
	Text(ctx context.Context, selector string) (string, error)
	// Texts returns the visible text of every match in document order.
	Texts(ctx context.Context, selector string) ([]string, error)
	HTML(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, error)
	// Sections returns the visible matches of selector in document order.
	Sections(ctx context.Context, selector string) ([]Section, error)
}

// Section is a view onto one unit of the live form. It is only valid until
// the form advances. Selectors are CSS, relative to the section.
type Section interface {
	Text(ctx context.Context) (string, error)
	Texts(ctx context.Context, selector string) ([]string, error)
	Count(ctx context.Context, selector string) (int, error)
	ClickNth(ctx context.Context, selector string, n int) error
	// Fill replaces the value of the first match.
	Fill(ctx context.Context, selector, value string) error
	// Choose selects the option with the given visible label in the first matching select.
	Choose(ctx context.Context, selector, label string) error
}
