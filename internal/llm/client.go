// Package llm is the text-generation layer: one Client interface, one adapter per
// provider and a retrying wrapper that owns backoff for overload and rate-limit errors.
package llm

import (
	"context"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request mirrors what every provider accepts: a model, an ordered conversation,
// a sampling temperature and an output token cap.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// PromptLength sums the characters sent, for debug logging.
func (r Request) PromptLength() int {
	n := len(r.System)
	for _, m := range r.Messages {
		n += len(m.Content)
	}
	return n
}

func trimOutput(s string) string {
	return strings.TrimSpace(s)
}
