package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stock-parody/manager-go/internal/utils"
)

// OllamaClient talks to a local Ollama server over its JSON chat endpoint.
type OllamaClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewOllamaClient(hostname string, port int, timeout time.Duration) *OllamaClient {
	if port == 0 {
		port = 11434
	}
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	base := hostname
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = fmt.Sprintf("http://%s:%d", hostname, port)
	}
	return &OllamaClient{BaseURL: strings.TrimRight(base, "/"), HTTP: &http.Client{Timeout: timeout}}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *OllamaClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]ollamaMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	payload := map[string]any{
		"model":      req.Model,
		"keep_alive": 300,
		"messages":   messages,
		"stream":     false,
		"options": map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := c.BaseURL + "/api/chat"
	utils.Debug("ollama chat", "url", url, "model", req.Model, "prompt_len", req.PromptLength())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", classify(ctx, "ollama", 0, err)
	}
	defer resp.Body.Close()
	utils.Debug("ollama response", "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", classify(ctx, "ollama", resp.StatusCode, fmt.Errorf("ollama response status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var decoded struct {
		Message ollamaMessage `json:"message"`
		Error   string        `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", classify(ctx, "ollama", 0, fmt.Errorf("decode ollama response: %w", err))
	}
	if decoded.Error != "" {
		return "", &APIError{Provider: "ollama", Kind: KindFatal, Err: fmt.Errorf("%s", decoded.Error)}
	}
	return trimOutput(decoded.Message.Content), nil
}
