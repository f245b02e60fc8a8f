package llm

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"stock-parody/manager-go/internal/utils"
)

type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(apiKey string, timeout time.Duration) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client}
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
			continue
		}
		messages = append(messages, openai.UserMessage(m.Content))
	}

	utils.Debug("openai chat", "model", req.Model, "turns", len(messages), "prompt_len", req.PromptLength())
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	})
	if err != nil {
		status := 0
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return "", classify(ctx, "openai", status, err)
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{Provider: "openai", Kind: KindTransient, Err: errors.New("no choices in response")}
	}
	return trimOutput(resp.Choices[0].Message.Content), nil
}
