package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestOllamaComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"  2,0,1 \n"}}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 0, 0)
	out, err := c.Complete(context.Background(), Request{
		Model:       "llama3.2",
		Messages:    []Message{UserMessage("rank"), AssistantMessage("bad"), UserMessage("fix")},
		Temperature: 0.1,
		MaxTokens:   100,
	})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "2,0,1", out)
	assert.Equal(t, "llama3.2", got["model"])
	assert.Equal(t, false, got["stream"])

	messages := got["messages"].([]any)
	assert.Equal(t, 3, len(messages))
	assert.Equal(t, "assistant", messages[1].(map[string]any)["role"])
}

func TestOllamaStatusClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 0, 0)
	_, err := c.Complete(context.Background(), Request{Model: "m"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, true, errors.Is(err, ErrTransient))
}
