// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

// geminiModels is the slice of the genai Models service the client uses.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient implements schemas.LLMClient on the Gemini API.
type GeminiClient struct {
	models     geminiModels
	cfg        config.LLMModelConfig
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// NewGeminiClient creates a client for the Gemini developer API.
func NewGeminiClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APITimeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.APITimeout}
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return newGeminiClient(client.Models, cfg, logger), nil
}

func newGeminiClient(models geminiModels, cfg config.LLMModelConfig, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		models:     models,
		cfg:        cfg,
		logger:     logger.Named("llm_client.gemini").With(zap.String("model", cfg.Model)),
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second
	return b
}

// Generate sends the request, retrying rate limits and server errors.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	genCfg := c.buildConfig(req)
	contents := genai.Text(req.UserPrompt)

	var reply string
	operation := func() error {
		start := time.Now()
		resp, err := c.models.GenerateContent(ctx, c.cfg.Model, contents, genCfg)
		if err != nil {
			return c.classify(ctx, err)
		}

		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return backoff.Permanent(fmt.Errorf("gemini blocked the prompt (reason: %s)", resp.PromptFeedback.BlockReason))
		}
		if len(resp.Candidates) == 0 {
			return backoff.Permanent(errors.New("gemini returned no candidates"))
		}

		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			reason := resp.Candidates[0].FinishReason
			switch reason {
			case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
				return backoff.Permanent(fmt.Errorf("gemini blocked the response (reason: %s)", reason))
			}
			return fmt.Errorf("gemini returned empty content (reason: %s)", reason)
		}

		fields := []zap.Field{zap.Duration("duration", time.Since(start))}
		if u := resp.UsageMetadata; u != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", u.PromptTokenCount),
				zap.Int32("completion_tokens", u.CandidatesTokenCount),
				zap.Int32("total_tokens", u.TotalTokenCount),
			)
		}
		c.logger.Debug("LLM generation complete", fields...)
		reply = text
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return "", err
	}
	return reply, nil
}

func (c *GeminiClient) buildConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	temp := req.Options.Temperature
	if temp == 0 {
		temp = c.cfg.Temperature
	}
	gc := &genai.GenerateContentConfig{Temperature: genai.Ptr(temp)}

	if req.SystemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if topP := firstNonZero(req.Options.TopP, c.cfg.TopP); topP > 0 {
		gc.TopP = genai.Ptr(topP)
	}
	if maxTokens := firstNonZeroInt(req.Options.MaxTokens, c.cfg.MaxTokens); maxTokens > 0 {
		gc.MaxOutputTokens = int32(maxTokens)
	}
	if req.Options.ForceJSONFormat {
		gc.ResponseMIMEType = "application/json"
	}
	return gc
}

// classify marks an API error as retryable or permanent.
func (c *GeminiClient) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		c.logger.Warn("Network error during LLM request, retrying", zap.Error(err))
		return fmt.Errorf("gemini request failed: %w", err)
	}

	code := apiErr.Code
	wrapped := fmt.Errorf("gemini API error (status %d): %w", code, err)
	if retryableStatus(code) {
		c.logger.Warn("Transient LLM API error, retrying", zap.Int("status", code))
		return wrapped
	}
	c.logger.Error("LLM API rejected the request", zap.Int("status", code), zap.Error(err))
	return backoff.Permanent(wrapped)
}

// Close is a no-op; the genai client holds no resources of its own.
func (c *GeminiClient) Close() error { return nil }

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func firstNonZero(vals ...float32) float32 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonZeroInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
