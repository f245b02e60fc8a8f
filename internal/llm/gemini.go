package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"google.golang.org/genai"

	"stock-parody/manager-go/internal/utils"
)

type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

var geminiStatusPattern = regexp.MustCompile(`Error (\d{3})`)

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	utils.Debug("gemini generate", "model", req.Model, "turns", len(contents), "prompt_len", req.PromptLength())
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", classify(ctx, "gemini", geminiStatus(err), err)
	}
	text := resp.Text()
	if text == "" {
		return "", &APIError{Provider: "gemini", Kind: KindTransient, Err: errors.New("empty response")}
	}
	return trimOutput(text), nil
}

func geminiStatus(err error) int {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if m := geminiStatusPattern.FindStringSubmatch(err.Error()); len(m) == 2 {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}
