package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"google.golang.org/api/option"
)

var runDay = time.Date(2025, 7, 17, 8, 0, 0, 0, time.UTC)

func TestDefaultMetadata(t *testing.T) {
	meta, err := LoadMetadata("", NewTemplateData(runDay, "면책조항:재미목적"))
	assert.Equal(t, nil, err)
	assert.Equal(t, true, strings.HasPrefix(meta.Title, "2025년 07월 17일 주식뉴스 |"))
	assert.Equal(t, true, strings.Contains(meta.Description, "면책조항:재미목적"))
	assert.Equal(t, true, strings.Contains(meta.Description, "#주식뉴스"))
	assert.Equal(t, DefaultTags, meta.Tags)
	assert.Equal(t, "24", meta.CategoryID)
	assert.Equal(t, "private", meta.Privacy)
}

func TestMetadataFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "youtube.yaml")
	raw := "title: \"{{.ISODate}} 증시 유머\"\ndescription: \"{{.Disclaimer}}\"\ntags: [\"주식\", \"{{.ISODate}}\"]\nprivacy: unlisted\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	meta, err := LoadMetadata(path, NewTemplateData(runDay, "d"))
	assert.Equal(t, nil, err)
	assert.Equal(t, "2025-07-17 증시 유머", meta.Title)
	assert.Equal(t, "d", meta.Description)
	assert.Equal(t, []string{"주식", "2025-07-17"}, meta.Tags)
	assert.Equal(t, "unlisted", meta.Privacy)
	assert.Equal(t, DefaultCategory, meta.CategoryID)
}

func TestMetadataRejectsUnknownField(t *testing.T) {
	_, err := RenderMetadata([]byte("title: \"{{.Nope}}\"\n"), NewTemplateData(runDay, ""))
	assert.NotEqual(t, nil, err)
}

func TestExtractYouTubeID(t *testing.T) {
	tests := map[string]string{
		"dQw4w9WgXcQ":                                 "dQw4w9WgXcQ",
		" https://youtu.be/dQw4w9WgXcQ ":              "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ": "dQw4w9WgXcQ",
		"https://youtube.com/shorts/dQw4w9WgXcQ":      "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":   "dQw4w9WgXcQ",
		"https://example.com/watch?v=dQw4w9WgXcQ":     "",
		"not an id":                                   "",
	}
	for input, want := range tests {
		if got := ExtractYouTubeID(input); got != want {
			t.Errorf("ExtractYouTubeID(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestWebhookSend(t *testing.T) {
	var got WebhookPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	payload := WebhookPayload{Title: "2025-07-17 자동증권뉴스", Description: "desc", VideoURL: DownloadURL("abc")}
	err := NewWebhook(srv.URL).Send(context.Background(), payload)
	assert.Equal(t, nil, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=abc", got.VideoURL)
}

func TestWebhookRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "scenario disabled", http.StatusGone)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).Send(context.Background(), WebhookPayload{})
	assert.NotEqual(t, nil, err)
	assert.Equal(t, true, strings.Contains(err.Error(), "410"))
}

func TestPickLatestVideo(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "ou_stock_parody_final_20250716_090000.mp4")
	newer := filepath.Join(dir, "ou_stock_parody_final_20250717_090000.mp4")
	for i, path := range []string{older, newer} {
		if err := os.WriteFile(path, []byte("v"), 0o644); err != nil {
			t.Fatal(err)
		}
		stamp := runDay.Add(time.Duration(i) * time.Hour)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatal(err)
		}
	}
	got, err := PickLatestVideo(dir)
	assert.Equal(t, nil, err)
	assert.Equal(t, newer, got)

	_, err = PickLatestVideo(t.TempDir())
	assert.NotEqual(t, nil, err)
}

func TestReadTokenLayouts(t *testing.T) {
	dir := t.TempDir()
	python := filepath.Join(dir, "python.json")
	goStyle := filepath.Join(dir, "go.json")
	_ = os.WriteFile(python, []byte(`{"token":"ya29.a","refresh_token":"1//r","client_id":"cid","client_secret":"cs","token_uri":"https://oauth2.googleapis.com/token"}`), 0o600)
	_ = os.WriteFile(goStyle, []byte(`{"access_token":"ya29.b","token_type":"Bearer"}`), 0o600)

	tok, err := readToken(python)
	assert.Equal(t, nil, err)
	assert.Equal(t, "ya29.a", tok.AccessToken)
	assert.Equal(t, "cid", tok.ClientID)

	tok, err = readToken(goStyle)
	assert.Equal(t, nil, err)
	assert.Equal(t, "ya29.b", tok.AccessToken)

	client, err := OAuthClient(context.Background(), "", python, ScopeYouTubeUpload)
	assert.Equal(t, nil, err)
	assert.NotEqual(t, nil, client)
}

func TestYouTubeUpload(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"dQw4w9WgXcQ"}`))
	}))
	defer srv.Close()

	video := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(video, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	yt, err := NewYouTube(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	assert.Equal(t, nil, err)

	id, err := yt.Upload(context.Background(), video, Metadata{Title: "t", Privacy: "private", CategoryID: "24"})
	assert.Equal(t, nil, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)
	assert.Equal(t, true, strings.Contains(query, "part=snippet"))
}
