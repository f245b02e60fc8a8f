package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>증권</title>
  <link>https://news.example</link>
  <description>finance</description>
  <item>
    <title>코스피 2% 급등</title>
    <link>https://news.example/1</link>
    <description><![CDATA[<p>외국인 <b>순매수</b> 전환</p>]]></description>
    <pubDate>Thu, 17 Jul 2025 08:00:00 +0900</pubDate>
  </item>
  <item>
    <title>코스피 2% 급등!!</title>
    <link>https://news.example/1b</link>
    <description>중복 기사</description>
    <pubDate>Thu, 17 Jul 2025 08:10:00 +0900</pubDate>
  </item>
  <item>
    <title>환율 1400원 재돌파</title>
    <link>https://news.example/2</link>
    <description>달러 강세</description>
    <pubDate>Wed, 16 Jul 2025 23:30:00 +0000</pubDate>
  </item>
  <item>
    <title>한국은행 기준금리 동결</title>
    <link>https://news.example/3</link>
    <description>시장 예상 부합</description>
    <pubDate>Fri, 11 Jul 2025 10:00:00 +0900</pubDate>
  </item>
  <item>
    <title>반도체 수출 감소</title>
    <link>https://news.example/4</link>
    <description>오래된 기사</description>
    <pubDate>Tue, 01 Jul 2025 10:00:00 +0900</pubDate>
  </item>
</channel>
</rss>`

func newTestFetcher(t *testing.T, minItems int) *Fetcher {
	t.Helper()
	kst, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		kst = time.FixedZone("KST", 9*60*60)
	}
	f := NewFetcher(kst)
	f.Now = func() time.Time { return time.Date(2025, 7, 17, 9, 0, 0, 0, kst) }
	f.MinItems = minItems
	return f
}

func feedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchWindowAndDedupe(t *testing.T) {
	srv := feedServer(t, http.StatusOK, testFeed)
	f := newTestFetcher(t, 2)

	items, err := f.Fetch(context.Background(), []string{srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	assert.Equal(t, 3, len(items))
	assert.Equal(t, Item{
		Title:     "코스피 2% 급등",
		Summary:   "외국인 순매수 전환",
		Published: "2025-07-17",
		Link:      "https://news.example/1",
	}, items[0])
	// 23:30 UTC on the 16th is the morning of the 17th in Seoul.
	assert.Equal(t, "2025-07-17", items[1].Published)
	assert.Equal(t, "2025-07-11", items[2].Published)
	assert.Equal(t, "2025-07-17", f.Today())
}

func TestFetchFallsBackWithoutDateFilter(t *testing.T) {
	srv := feedServer(t, http.StatusOK, testFeed)
	f := newTestFetcher(t, 10)

	items, err := f.Fetch(context.Background(), []string{srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 4, len(items))
	assert.Equal(t, "반도체 수출 감소", items[3].Title)
	assert.Equal(t, "2025-07-01", items[3].Published)
}

func TestFetchSkipsBrokenFeed(t *testing.T) {
	bad := feedServer(t, http.StatusBadGateway, "")
	good := feedServer(t, http.StatusOK, testFeed)
	f := newTestFetcher(t, 2)

	items, err := f.Fetch(context.Background(), []string{bad.URL, good.URL})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 3, len(items))
}

func TestFetchNoItems(t *testing.T) {
	bad := feedServer(t, http.StatusInternalServerError, "")
	f := newTestFetcher(t, 2)

	_, err := f.Fetch(context.Background(), []string{bad.URL})
	if !errors.Is(err, ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "삼성 & 하이닉스 강세", StripHTML("<div>삼성 &amp; <i>하이닉스</i>\n  강세</div>"))
	assert.Equal(t, "plain text", StripHTML("  plain   text "))
}

func TestItemContent(t *testing.T) {
	full := Item{Title: "코스피 3000", Summary: "외국인 매수", Link: "https://news/1"}
	assert.Equal(t, "- 제목: 코스피 3000\n- 요약: 외국인 매수\n- 링크: https://news/1\n", full.Content())
	assert.Equal(t, "- 제목: 환율\n", Item{Title: "환율"}.Content())
}
