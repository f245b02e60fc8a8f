package llm

import (
	"context"
	"fmt"
	"time"

	"stock-parody/manager-go/internal/config"
	"stock-parody/manager-go/internal/utils"
)

// New builds the configured provider wrapped in the retrying, rate-limited layer.
func New(ctx context.Context, cfg config.Config) (*Retrying, error) {
	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second

	var provider Client
	switch cfg.LLMProvider {
	case "", "anthropic":
		provider = NewAnthropicClient(cfg.AnthropicAPIKey, timeout)
	case "openai":
		provider = NewOpenAIClient(cfg.OpenAIAPIKey, timeout)
	case "gemini":
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		provider = client
	case "ollama":
		provider = NewOllamaClient(cfg.OllamaHostname, cfg.OllamaPort, timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
	utils.Info("llm provider", "provider", cfg.LLMProvider, "model", cfg.LLMModel, "max_retries", cfg.LLMMaxRetries)

	retrying := NewRetrying(
		provider,
		cfg.LLMMaxRetries,
		time.Duration(cfg.LLMBaseDelayMS)*time.Millisecond,
		time.Duration(cfg.LLMMaxDelayMS)*time.Millisecond,
	)
	return retrying.WithRateLimit(cfg.LLMRequestsPerMinute), nil
}
