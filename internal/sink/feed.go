package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/feeds"

	"stock-parody/manager-go/internal/news"
	"stock-parody/manager-go/internal/parody"
	"stock-parody/manager-go/internal/utils"
)

// FeedWriter exports the run as an RSS 2.0 document. Placeholder rows are left out.
type FeedWriter struct {
	Path     string
	Title    string
	Link     string
	Location *time.Location
	Now      func() time.Time
}

func (w FeedWriter) Name() string { return "feed" }

func (w FeedWriter) Write(ctx context.Context, records []parody.Record) error {
	rss, err := w.Render(records)
	if err == nil {
		if err = utils.EnsureDir(filepath.Dir(w.Path)); err == nil {
			err = os.WriteFile(w.Path, []byte(rss), 0o644)
		}
	}
	if err != nil {
		return &PersistenceError{Sink: w.Name(), Err: err}
	}
	return nil
}

func (w FeedWriter) Render(records []parody.Record) (string, error) {
	now := time.Now()
	if w.Now != nil {
		now = w.Now()
	}
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	title := w.Title
	if title == "" {
		title = "오늘의 증시 유머"
	}
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: w.Link},
		Description: "AI가 만든 증권 뉴스 패러디",
		Created:     now,
	}
	for i, r := range records {
		if r.IsPlaceholder() {
			continue
		}
		created := now
		if day, err := time.ParseInLocation(news.DateLayout, r.Date, loc); err == nil {
			created = day
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%s-%02d", r.Date, i+1),
			Title:       r.ParodyTitle,
			Link:        &feeds.Link{Href: r.SourceURL},
			Description: r.Setup + "\n" + r.Punchline,
			Content:     r.HumorLesson + "\n\n" + r.Disclaimer,
			Created:     created,
		})
	}
	return feed.ToRss()
}
