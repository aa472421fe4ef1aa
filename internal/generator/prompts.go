package generator

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
)

const answerSystemPrompt = `You are filling in a job application on behalf of the applicant.
Answer every question in the first person, truthfully according to the applicant data provided, and as briefly as the question allows.
Never explain your answer, never add a preamble, and never wrap the answer in quotes.`

const summarySystemPrompt = `You summarise job postings for an applicant.
Keep only the information that matters when answering application questions: role, seniority, required skills and years of experience, location and work arrangement, and compensation if stated.
Do not use headings. Reply with at most 120 words.`

// maxDescriptionChars bounds the description sent for summarisation.
const maxDescriptionChars = 12000

func kindInstruction(q schemas.Question) string {
	switch q.Kind {
	case schemas.KindRadio, schemas.KindDropdown:
		return "Reply with exactly one of the options above, copied verbatim."
	case schemas.KindDate:
		return "Reply with a single date in MM/DD/YYYY format."
	default:
		if numericQuestion(q.Prompt()) {
			return "Reply with a single whole number and nothing else."
		}
		return "Reply with a short answer suitable for a single form field."
	}
}

// numericQuestion reports whether the wording asks for a count, such as
// years of experience.
func numericQuestion(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "how many") || strings.Contains(t, "years of") || strings.Contains(t, "number of")
}

// buildAnswerPrompt renders the user prompt for a question. hint is the
// profile section relevant to the question, if any.
func buildAnswerPrompt(q schemas.Question, hint string) string {
	var b strings.Builder

	if job := q.Job; job != nil {
		b.WriteString("## Job\n")
		if job.Title != "" {
			fmt.Fprintf(&b, "Title: %s\n", job.Title)
		}
		if job.Company != "" {
			fmt.Fprintf(&b, "Company: %s\n", job.Company)
		}
		if job.Location != "" {
			fmt.Fprintf(&b, "Location: %s\n", job.Location)
		}
		if job.Summary != "" {
			fmt.Fprintf(&b, "Summary:\n%s\n", job.Summary)
		}
		b.WriteString("\n")
	}

	if hint != "" {
		fmt.Fprintf(&b, "## Applicant data\n%s\n\n", hint)
	}

	fmt.Fprintf(&b, "## Question\n%s\n", strings.TrimSpace(q.Prompt()))
	if q.Kind.HasOptions() && len(q.Options) > 0 {
		b.WriteString("\n## Options\n")
		for _, o := range q.Options {
			fmt.Fprintf(&b, "- %s\n", o)
		}
	}
	fmt.Fprintf(&b, "\n%s", kindInstruction(q))
	return b.String()
}

func buildSummaryPrompt(description string) string {
	if len(description) > maxDescriptionChars {
		description = description[:maxDescriptionChars]
	}
	return "Summarise this job posting:\n\n" + description
}
