package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"stock-parody/manager-go/internal/config"
	"stock-parody/manager-go/internal/llm"
	"stock-parody/manager-go/internal/news"
	"stock-parody/manager-go/internal/sink"
)

const collectFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>증권</title>
  <link>https://news.example</link>
  <description>finance</description>
  <item>
    <title>코스피 3000 돌파</title>
    <link>https://news.example/kospi</link>
    <description>외국인 순매수</description>
    <pubDate>Thu, 17 Jul 2025 08:00:00 +0900</pubDate>
  </item>
  <item>
    <title>환율 1400원 재돌파</title>
    <link>https://news.example/fx</link>
    <description>달러 강세</description>
    <pubDate>Thu, 17 Jul 2025 07:00:00 +0900</pubDate>
  </item>
</channel>
</rss>`

func collectFixture(t *testing.T, client llm.Client) (CollectJob, JobContext, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(collectFeed))
	}))
	t.Cleanup(srv.Close)

	fetcher := news.NewFetcher(kst)
	fetcher.Now = func() time.Time { return time.Date(2025, 7, 17, 9, 0, 0, 0, kst) }
	fetcher.MinItems = 1

	csvPath := filepath.Join(t.TempDir(), "parody.csv")
	cfg := config.Config{
		LLMProvider:        "anthropic",
		AnthropicAPIKey:    "test-key",
		RSSURLs:            []string{srv.URL},
		CSVPath:            csvPath,
		Disclaimer:         "면책조항:재미목적",
		TopN:               5,
		GenerationAttempts: 2,
	}
	job := NewCollectJob()
	job.Client = client
	job.Fetcher = fetcher
	return job, JobContext{Config: cfg}, csvPath
}

func cardJSON(title string) string {
	return fmt.Sprintf(`{"date":"2000-01-01","original_title":"x","parody_title":%q,"setup":"s","punchline":"p",`+
		`"humor_lesson":"h","disclaimer":"d","source_url":"https://model"}`, title)
}

func parodyReply(ctx context.Context, req llm.Request) (string, error) {
	prompt := req.Messages[0].Content
	switch {
	case strings.Contains(prompt, "중요도 순으로"):
		return "1,0", nil
	case strings.Contains(prompt, "코스피"):
		return "```json\n" + cardJSON("삼천피 가즈아") + "\n```", nil
	default:
		return cardJSON("환율 롤러코스터"), nil
	}
}

func TestCollectJobWritesCSV(t *testing.T) {
	job, jctx, csvPath := collectFixture(t, llm.ClientFunc(parodyReply))

	err := job.Run(context.Background(), jctx, JobOptions{})
	assert.Equal(t, nil, err)

	records, err := sink.ReadCSV(csvPath)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(records))
	// ranking put the second feed item first
	assert.Equal(t, "환율 1400원 재돌파", records[0].OriginalTitle)
	assert.Equal(t, "환율 롤러코스터", records[0].ParodyTitle)
	assert.Equal(t, "삼천피 가즈아", records[1].ParodyTitle)
	assert.Equal(t, "https://news.example/kospi", records[1].SourceURL)
	for _, r := range records {
		assert.Equal(t, "2025-07-17", r.Date)
		assert.Equal(t, "면책조항:재미목적", r.Disclaimer)
	}
}

func TestCollectJobFailsWhenNothingAccepted(t *testing.T) {
	calls := 0
	job, jctx, csvPath := collectFixture(t, llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		calls++
		return "죄송합니다. 지금은 만들 수 없습니다.", nil
	}))

	err := job.Run(context.Background(), jctx, JobOptions{})
	assert.Equal(t, true, errors.Is(err, ErrNothingAccepted))
	// one ranking call plus two attempts per item
	assert.Equal(t, 5, calls)

	_, statErr := os.Stat(csvPath)
	assert.Equal(t, true, os.IsNotExist(statErr))
}

func TestCollectJobValidatesConfig(t *testing.T) {
	job, jctx, _ := collectFixture(t, llm.ClientFunc(parodyReply))
	jctx.Config.AnthropicAPIKey = ""

	err := job.Run(context.Background(), jctx, JobOptions{})
	assert.Equal(t, true, errors.Is(err, config.ErrMissing))
}

func TestCollectJobChecksSheetCredentialsBeforeModelCalls(t *testing.T) {
	calls := 0
	job, jctx, csvPath := collectFixture(t, llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		calls++
		return parodyReply(ctx, req)
	}))
	jctx.Config.SheetID = "sheet-id"
	jctx.Config.GoogleCredentialsFile = filepath.Join(t.TempDir(), "missing", "service_account.json")

	err := job.Run(context.Background(), jctx, JobOptions{})
	assert.Equal(t, true, errors.Is(err, config.ErrMissing))
	assert.Equal(t, 0, calls)

	_, statErr := os.Stat(csvPath)
	assert.Equal(t, true, os.IsNotExist(statErr))
}

