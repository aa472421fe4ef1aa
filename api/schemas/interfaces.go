package schemas

import (
	"context"
)

// -- LLM Client Interface --

// ModelTier selects which class of model serves a request.
type ModelTier string

const (
	// TierFast is used for short, structured answers (choices, summaries).
	TierFast ModelTier = "fast"
	// TierPowerful is used for open ended free-text answers.
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions tunes a single generation call.
type GenerationOptions struct {
	Temperature     float32
	ForceJSONFormat bool
	TopP            float32
	MaxTokens       int
}

// GenerationRequest holds everything a provider needs to produce a reply.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Tier         ModelTier
	Options      GenerationOptions
}

// LLMClient is implemented by every language model provider and by the router.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Close() error
}

// AnswerGenerator produces a candidate answer for a question the cache could not satisfy.
type AnswerGenerator interface {
	Generate(ctx context.Context, q Question) (string, error)
}
