package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

// KeyLookup returns the stored API key for a provider. It is consulted only
// when the model configuration carries no key.
type KeyLookup func(provider config.LLMProvider) (string, error)

// NewClient is a factory function that creates an LLMClient based on the configuration.
func NewClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderOpenAI)
	}
}

// NewRouterFromConfig builds one client per distinct tier model and wires
// them into a rate limited router.
func NewRouterFromConfig(ctx context.Context, cfg config.LLMRouterConfig, keys KeyLookup, logger *zap.Logger) (*LLMRouter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid llm configuration: %w", err)
	}

	built := make(map[string]schemas.LLMClient, 2)
	build := func(name string) (schemas.LLMClient, error) {
		if c, ok := built[name]; ok {
			return c, nil
		}
		mc := cfg.Models[name]
		if mc.APIKey == "" && keys != nil {
			key, err := keys(mc.Provider)
			if err != nil {
				return nil, fmt.Errorf("no API key for model %q: %w", name, err)
			}
			mc.APIKey = key
		}
		c, err := NewClient(ctx, mc, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create client for model %q: %w", name, err)
		}
		built[name] = c
		return c, nil
	}

	fast, err := build(cfg.DefaultFastModel)
	if err != nil {
		return nil, err
	}
	powerful, err := build(cfg.DefaultPowerfulModel)
	if err != nil {
		_ = fast.Close()
		return nil, err
	}
	return NewLLMRouter(logger, fast, powerful, cfg.RequestsPerMinute)
}
