package config

import (
	"bufio"
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Keys understood in asset/rawdata.txt.
const (
	KeyRSSURL      = "RSS_URL 지정"
	KeyVideoLength = "동영상길이"
)

// RawData is the parsed bracketed settings file: every `[Key]` header owns the
// non-blank lines that follow it. One line is a scalar, more than one is a list.
type RawData map[string][]string

var digitsPattern = regexp.MustCompile(`\d+`)

// ParseRawData reads the bracketed key/value file at path. A missing file yields an
// empty RawData and no error; callers decide whether that is fatal.
func ParseRawData(path string) (RawData, error) {
	data := RawData{}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return nil, err
	}
	defer file.Close()

	var (
		current string
		values  []string
	)
	flush := func() {
		if current != "" && len(values) > 0 {
			data[current] = values
		}
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()
			current = line[1 : len(line)-1]
			values = nil
			continue
		}
		if current != "" {
			values = append(values, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return data, nil
}

// Value returns the first value recorded for key.
func (r RawData) Value(key string) (string, bool) {
	values := r[key]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (r RawData) Values(key string) []string {
	values := r[key]
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// IsList reports whether key was given more than one value line.
func (r RawData) IsList(key string) bool {
	return len(r[key]) > 1
}

// IntValue pulls the first run of digits out of the value, so prose such as
// "카드뉴스별 동영상 길이 : 4초" still yields 4.
func (r RawData) IntValue(key string, fallback int) int {
	value, ok := r.Value(key)
	if !ok {
		return fallback
	}
	match := digitsPattern.FindString(value)
	if match == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(match)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
