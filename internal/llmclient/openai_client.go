// internal/llmclient/openai_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

// OpenAIClient implements schemas.LLMClient on an OpenAI compatible chat API.
type OpenAIClient struct {
	llm        llms.Model
	cfg        config.LLMModelConfig
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// NewOpenAIClient creates a client. cfg.Endpoint overrides the API base URL.
func NewOpenAIClient(cfg config.LLMModelConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
	if cfg.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
	}
	if cfg.APITimeout > 0 {
		opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return newOpenAIClient(llm, cfg, logger), nil
}

func newOpenAIClient(llm llms.Model, cfg config.LLMModelConfig, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		llm:        llm,
		cfg:        cfg,
		logger:     logger.Named("llm_client.openai").With(zap.String("model", cfg.Model)),
		newBackOff: defaultBackOff,
	}
}

// Generate sends the request, retrying network failures, rate limiting and
// server errors.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	var messages []llms.MessageContent
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.UserPrompt))

	temp := req.Options.Temperature
	if temp == 0 {
		temp = c.cfg.Temperature
	}
	opts := []llms.CallOption{llms.WithTemperature(float64(temp))}
	if topP := firstNonZero(req.Options.TopP, c.cfg.TopP); topP > 0 {
		opts = append(opts, llms.WithTopP(float64(topP)))
	}
	if maxTokens := firstNonZeroInt(req.Options.MaxTokens, c.cfg.MaxTokens); maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}
	if req.Options.ForceJSONFormat {
		opts = append(opts, llms.WithJSONMode())
	}

	var reply string
	operation := func() error {
		start := time.Now()
		resp, err := c.llm.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return c.classify(ctx, err)
		}
		if resp == nil || len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("openai returned no choices"))
		}

		choice := resp.Choices[0]
		if strings.TrimSpace(choice.Content) == "" {
			if choice.StopReason == "content_filter" {
				return backoff.Permanent(errors.New("openai filtered the response"))
			}
			return fmt.Errorf("openai returned empty content (stop reason: %s)", choice.StopReason)
		}

		fields := []zap.Field{zap.Duration("duration", time.Since(start))}
		for _, k := range []string{"PromptTokens", "CompletionTokens", "TotalTokens"} {
			if v, ok := choice.GenerationInfo[k]; ok {
				fields = append(fields, zap.Any(k, v))
			}
		}
		c.logger.Debug("LLM generation complete", fields...)
		reply = choice.Content
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return "", err
	}
	return reply, nil
}

// classify retries network failures and the transient statuses shared with
// the Gemini client. Any other HTTP status is final.
func (c *OpenAIClient) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}
	if isAuthError(err) {
		return backoff.Permanent(fmt.Errorf("openai rejected the credentials: %w", err))
	}

	code, ok := statusCode(err)
	if !ok {
		c.logger.Warn("LLM request failed, retrying", zap.Error(err))
		return fmt.Errorf("openai request failed: %w", err)
	}
	wrapped := fmt.Errorf("openai API error (status %d): %w", code, err)
	if retryableStatus(code) {
		c.logger.Warn("Transient LLM API error, retrying", zap.Int("status", code))
		return wrapped
	}
	c.logger.Error("LLM API rejected the request", zap.Int("status", code), zap.Error(err))
	return backoff.Permanent(wrapped)
}

var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// statusCode extracts the HTTP status the openai client embeds in its errors.
func statusCode(err error) (int, bool) {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	code, convErr := strconv.Atoi(m[1])
	return code, convErr == nil
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "incorrect api key")
}

// Close is a no-op.
func (c *OpenAIClient) Close() error { return nil }
