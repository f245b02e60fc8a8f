package parody

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\\r?\\n?(.*?)```")

// ExtractJSON finds the JSON object inside free-form model text. It tries, in order,
// a fenced code block holding a brace, then the span from the first '{' to the last '}'.
// ok is false when neither exists.
func ExtractJSON(text string) (string, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if span, ok := braceSpan(m[1]); ok {
			return span, true
		}
	}
	return braceSpan(text)
}

func braceSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
