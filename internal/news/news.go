// Package news pulls finance headlines from RSS feeds and normalizes them into Items.
package news

import (
	"errors"
	"fmt"
	"strings"
)

// DateLayout is the ISO date used for Item.Published and for run dates.
const DateLayout = "2006-01-02"

// ErrNoItems means no configured feed produced a single item. The run cannot continue.
var ErrNoItems = errors.New("no news items fetched")

type Item struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
	Link      string `json:"link"`
}

// Content is the item as a bulleted block for the generation prompt. Empty summary
// and link lines are left out.
func (i Item) Content() string {
	var b strings.Builder
	fmt.Fprintf(&b, "- 제목: %s\n", i.Title)
	if i.Summary != "" {
		fmt.Fprintf(&b, "- 요약: %s\n", i.Summary)
	}
	if i.Link != "" {
		fmt.Fprintf(&b, "- 링크: %s\n", i.Link)
	}
	return b.String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
