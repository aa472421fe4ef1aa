// Package generator answers form questions the answer store cannot, using a
// language model primed with the applicant profile and the job summary.
package generator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/form"
	"github.com/xkilldash9x/easyapply-cli/internal/profile"
)

// ErrEmptyReply is returned when the model produced nothing usable.
var ErrEmptyReply = errors.New("model returned an empty answer")

var _ schemas.AnswerGenerator = (*Generator)(nil)

// Generator implements schemas.AnswerGenerator.
type Generator struct {
	llm     schemas.LLMClient
	profile *profile.Profile
	logger  *zap.Logger
}

// New creates a Generator. profile may be nil.
func New(llm schemas.LLMClient, p *profile.Profile, logger *zap.Logger) *Generator {
	return &Generator{
		llm:     llm,
		profile: p,
		logger:  logger.Named("generator"),
	}
}

// Generate asks the model for an answer. Choice answers that name none of
// the options are coerced to the closest option by edit distance.
func (g *Generator) Generate(ctx context.Context, q schemas.Question) (string, error) {
	category, hint, _ := g.profile.Match(q.Prompt())

	req := schemas.GenerationRequest{
		SystemPrompt: answerSystemPrompt,
		UserPrompt:   buildAnswerPrompt(q, hint),
		Tier:         tierFor(q.Kind),
		Options:      schemas.GenerationOptions{Temperature: 0.4, MaxTokens: maxTokensFor(q.Kind)},
	}

	reply, err := g.llm.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	answer := cleanAnswer(reply)
	if answer == "" {
		return "", ErrEmptyReply
	}

	if q.Kind.HasOptions() && len(q.Options) > 0 {
		if _, err := form.MatchOption(q.Options, answer); err != nil {
			best := closestOption(answer, q.Options)
			g.logger.Debug("Coerced answer to closest option",
				zap.String("question", q.Prompt()),
				zap.String("reply", answer),
				zap.String("option", best))
			answer = best
		}
	}

	g.logger.Debug("Generated answer",
		zap.String("question", q.Prompt()),
		zap.String("kind", q.Kind.String()),
		zap.String("category", category),
		zap.String("answer", answer))
	return answer, nil
}

// Summarize condenses a job description for use in later prompts.
func (g *Generator) Summarize(ctx context.Context, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", errors.New("description is empty")
	}
	reply, err := g.llm.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   buildSummaryPrompt(description),
		Tier:         schemas.TierFast,
		Options:      schemas.GenerationOptions{Temperature: 0.2, MaxTokens: 400},
	})
	if err != nil {
		return "", fmt.Errorf("failed to summarize description: %w", err)
	}
	summary := strings.TrimSpace(reply)
	if summary == "" {
		return "", ErrEmptyReply
	}
	return summary, nil
}

func tierFor(kind schemas.WidgetKind) schemas.ModelTier {
	if kind == schemas.KindTextbox {
		return schemas.TierPowerful
	}
	return schemas.TierFast
}

func maxTokensFor(kind schemas.WidgetKind) int {
	if kind == schemas.KindTextbox {
		return 300
	}
	return 50
}

var (
	answerPrefix = regexp.MustCompile(`(?i)^\s*(?:answer|response)\s*:\s*`)
	codeFence    = regexp.MustCompile("^```[a-zA-Z]*\\s*|\\s*```$")
)

// cleanAnswer strips the decorations models tend to add around a bare answer.
func cleanAnswer(reply string) string {
	s := strings.TrimSpace(reply)
	s = codeFence.ReplaceAllString(s, "")
	s = answerPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "PLACEHOLDER", "")
	s = strings.TrimSpace(s)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}

// closestOption returns the option with the smallest Levenshtein distance to
// answer. Ties go to the earlier option.
func closestOption(answer string, options []string) string {
	a := strings.ToLower(answer)
	best, bestDist := options[0], -1
	for _, o := range options {
		d := matchr.Levenshtein(a, strings.ToLower(o))
		if bestDist < 0 || d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}
