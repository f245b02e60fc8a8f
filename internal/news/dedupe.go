package news

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// DefaultThreshold is the title similarity above which two items count as the same story.
const DefaultThreshold = 0.8

// Similarity is the Levenshtein ratio of two titles, compared rune by rune.
func Similarity(a, b string) float64 {
	return strutil.Similarity(a, b, metrics.NewLevenshtein())
}

// Dedupe keeps the first occurrence of each story. A later item is dropped when its
// title or link equals a kept item's, or its title similarity reaches threshold.
func Dedupe(items []Item, threshold float64) []Item {
	out := make([]Item, 0, len(items))
	titles := map[string]struct{}{}
	links := map[string]struct{}{}

	for _, item := range items {
		if _, ok := titles[item.Title]; ok {
			continue
		}
		if item.Link != "" {
			if _, ok := links[item.Link]; ok {
				continue
			}
		}
		if similarToAny(item.Title, out, threshold) {
			continue
		}
		out = append(out, item)
		titles[item.Title] = struct{}{}
		if item.Link != "" {
			links[item.Link] = struct{}{}
		}
	}
	return out
}

func similarToAny(title string, kept []Item, threshold float64) bool {
	for _, k := range kept {
		if Similarity(title, k.Title) >= threshold {
			return true
		}
	}
	return false
}
