package card

import (
	"strings"
	"time"
	"unicode/utf8"

	"stock-parody/manager-go/internal/news"
)

const (
	disclaimerPrefix = "면책조항:"
	sourcePrefix     = "출처: "
	sourceMaxRunes   = 80
)

// FormatCardDate renders 2025-06-20 as "2025-06-20.Fri.". Unparseable input is returned as is.
func FormatCardDate(date string) string {
	day, err := time.Parse(news.DateLayout, date)
	if err != nil {
		return date
	}
	return date + "." + day.Format("Mon") + "."
}

// SourceLine is the attribution footer, cut to 80 runes plus an ellipsis.
func SourceLine(title, url string) string {
	if title == "" {
		return ""
	}
	line := sourcePrefix + title
	if url != "" {
		line += "," + url
	}
	if utf8.RuneCountInString(line) > sourceMaxRunes {
		line = string([]rune(line)[:sourceMaxRunes]) + "..."
	}
	return line
}

func DisclaimerText(disclaimer string) string {
	if disclaimer == "" {
		return ""
	}
	if strings.HasPrefix(disclaimer, disclaimerPrefix) {
		return disclaimer
	}
	return disclaimerPrefix + disclaimer
}

// WrapWords greedily packs whitespace-separated words into lines no wider than width.
// A single word wider than width gets a line of its own.
func WrapWords(text string, width float64, measure func(string) float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if measure(candidate) <= width {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
