package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"stock-parody/manager-go/internal/utils"
)

type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient disables the SDK's built-in retries; Retrying owns backoff.
func NewAnthropicClient(apiKey string, timeout time.Duration) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client}
}

func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(block))
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	utils.Debug("anthropic messages", "model", req.Model, "turns", len(messages), "prompt_len", req.PromptLength())
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		status := 0
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", classify(ctx, "anthropic", status, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", &APIError{Provider: "anthropic", Kind: KindTransient, Err: fmt.Errorf("empty response (stop_reason=%s)", resp.StopReason)}
	}
	return trimOutput(out.String()), nil
}
