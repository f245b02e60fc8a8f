package news

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"stock-parody/manager-go/internal/utils"
)

const (
	DefaultDays     = 7
	DefaultMinItems = 20
)

type Fetcher struct {
	Client    *http.Client
	Location  *time.Location
	Now       func() time.Time
	Days      int
	MinItems  int
	Threshold float64
	UserAgent string
}

func NewFetcher(loc *time.Location) *Fetcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Fetcher{
		Client:    &http.Client{Timeout: 20 * time.Second},
		Location:  loc,
		Now:       time.Now,
		Days:      DefaultDays,
		MinItems:  DefaultMinItems,
		Threshold: DefaultThreshold,
		UserAgent: "stock-parody-manager/1.0",
	}
}

// Today returns the run date in the fetcher's timezone.
func (f *Fetcher) Today() string {
	return f.now().In(f.Location).Format(DateLayout)
}

// Fetch downloads every feed, keeps items published inside the trailing window and
// deduplicates them. When fewer than MinItems pass the window the date filter is dropped.
func (f *Fetcher) Fetch(ctx context.Context, urls []string) ([]Item, error) {
	parser := gofeed.NewParser()

	var feeds []*gofeed.Feed
	var lastErr error
	for _, feedURL := range urls {
		feed, err := f.fetchFeed(ctx, parser, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			utils.Warn("rss fetch failed", "url", feedURL, "err", err)
			lastErr = err
			continue
		}
		utils.Debug("rss fetched", "url", feedURL, "entries", len(feed.Items))
		feeds = append(feeds, feed)
	}

	windowed, filtered := f.collect(feeds, true)
	utils.Info("rss window", "kept", len(windowed), "filtered", filtered, "days", f.days())

	items := windowed
	if len(items) < f.minItems() {
		utils.Warn("too few items inside window; collecting without date filter", "kept", len(items), "min", f.minItems())
		items, _ = f.collect(feeds, false)
	}

	items = Dedupe(items, f.threshold())
	if len(items) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoItems, lastErr)
		}
		return nil, ErrNoItems
	}
	return items, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, parser *gofeed.Parser, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rss response status %d", resp.StatusCode)
	}
	return parser.Parse(resp.Body)
}

func (f *Fetcher) collect(feeds []*gofeed.Feed, window bool) ([]Item, int) {
	today := f.now().In(f.Location)
	end := today.Format(DateLayout)
	start := today.AddDate(0, 0, -(f.days() - 1)).Format(DateLayout)

	var out []Item
	filtered := 0
	for _, feed := range feeds {
		for _, entry := range feed.Items {
			if entry == nil {
				continue
			}
			published := f.publishedDate(entry)
			if window && (published == "" || published < start || published > end) {
				filtered++
				continue
			}
			out = append(out, Item{
				Title:     normalizeSpace(entry.Title),
				Summary:   StripHTML(summaryOf(entry)),
				Published: published,
				Link:      strings.TrimSpace(entry.Link),
			})
		}
	}
	return out, filtered
}

// publishedDate prefers the parsed publish time, then a leading YYYY-MM-DD in the raw
// published string, then the parsed update time.
func (f *Fetcher) publishedDate(entry *gofeed.Item) string {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.In(f.Location).Format(DateLayout)
	}
	if raw := strings.TrimSpace(entry.Published); len(raw) >= 10 {
		if t, err := time.Parse(DateLayout, raw[:10]); err == nil {
			return t.Format(DateLayout)
		}
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.In(f.Location).Format(DateLayout)
	}
	return ""
}

func summaryOf(entry *gofeed.Item) string {
	if entry.Description != "" {
		return entry.Description
	}
	return entry.Content
}

// StripHTML returns the visible text of an HTML fragment with whitespace collapsed.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return normalizeSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return normalizeSpace(fragment)
	}
	return normalizeSpace(doc.Text())
}

func (f *Fetcher) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func (f *Fetcher) days() int {
	if f.Days <= 0 {
		return DefaultDays
	}
	return f.Days
}

func (f *Fetcher) minItems() int {
	if f.MinItems < 0 {
		return 0
	}
	return f.MinItems
}

func (f *Fetcher) threshold() float64 {
	if f.Threshold <= 0 {
		return DefaultThreshold
	}
	return f.Threshold
}
