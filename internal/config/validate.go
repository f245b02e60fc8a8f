package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissing marks a configuration error: a required secret, identifier or file is absent.
var ErrMissing = errors.New("missing required configuration")

type Error struct {
	Stage   string
	Missing []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, ErrMissing.Error(), strings.Join(e.Missing, ", "))
}

func (e *Error) Unwrap() error { return ErrMissing }

func (c Config) providerKey() (string, string) {
	switch c.LLMProvider {
	case "openai":
		return "openai.api_key / OPENAI_API_KEY", c.OpenAIAPIKey
	case "gemini":
		return "gemini.api_key / GEMINI_API_KEY", c.GeminiAPIKey
	case "ollama":
		return "ollama.hostname", c.OllamaHostname
	default:
		return "anthropic.api_key / CLAUDE_API_KEY", c.AnthropicAPIKey
	}
}

// ValidateCollect checks everything the collection stage needs before any network call.
func (c Config) ValidateCollect() error {
	var missing []string
	switch c.LLMProvider {
	case "anthropic", "openai", "gemini", "ollama":
	default:
		missing = append(missing, fmt.Sprintf("llm.provider (unknown %q)", c.LLMProvider))
	}
	if name, value := c.providerKey(); value == "" {
		missing = append(missing, name)
	}
	if len(c.RSSURLs) == 0 {
		missing = append(missing, "news.rss_urls / ["+KeyRSSURL+"] in "+c.RawDataPath)
	}
	if c.SheetID == "" && c.CSVPath == "" {
		missing = append(missing, "sheets.id / GSHEET_ID or output.csv")
	}
	if c.SheetID != "" && c.GoogleCredentialsJSON == "" {
		switch {
		case c.GoogleCredentialsFile == "":
			missing = append(missing, "GOOGLE_CREDENTIALS_JSON or sheets.credentials_file")
		case !fileExists(c.GoogleCredentialsFile):
			missing = append(missing, "sheets.credentials_file ("+c.GoogleCredentialsFile+" not found)")
		}
	}
	return c.result("collect", missing)
}

func (c Config) ValidateUpload() error {
	var missing []string
	if c.YouTubeClientSecrets == "" {
		missing = append(missing, "youtube.client_secrets")
	}
	if c.YouTubeTokenFile == "" {
		missing = append(missing, "youtube.token_file")
	}
	return c.result("upload", missing)
}

// ValidateDriveUpload reuses the YouTube OAuth token, which also carries the drive.file scope.
func (c Config) ValidateDriveUpload() error {
	var missing []string
	if c.YouTubeTokenFile == "" {
		missing = append(missing, "youtube.token_file")
	}
	if c.WebhookURL == "" {
		missing = append(missing, "drive.webhook_url / MAKE_WEBHOOK_URL")
	}
	return c.result("drive", missing)
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func (c Config) result(stage string, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return &Error{Stage: stage, Missing: missing}
}
