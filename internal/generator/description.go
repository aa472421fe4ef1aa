package generator

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var (
	descriptionPolicy = bluemonday.UGCPolicy()
	mdConverter       = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// DescriptionMarkdown turns the posting's description markup into markdown.
// Scripts, styles and event handlers are stripped first. When conversion
// fails or yields nothing the plain text of the fragment is returned.
func DescriptionMarkdown(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}
	clean := descriptionPolicy.Sanitize(rawHTML)

	md, err := mdConverter.ConvertString(clean)
	if err != nil || strings.TrimSpace(md) == "" {
		return PlainText(clean)
	}
	return blankLines.ReplaceAllString(strings.TrimSpace(md), "\n\n")
}

// PlainText extracts the visible text of an HTML fragment with runs of
// whitespace collapsed.
func PlainText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return strings.Join(strings.Fields(rawHTML), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
