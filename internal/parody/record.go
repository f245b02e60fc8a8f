// Package parody turns ranked news items into validated parody records.
package parody

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedOutput covers every way a model response can fail to become a Record.
var ErrMalformedOutput = errors.New("malformed model output")

// ErrNoJSON is returned when neither a fenced block nor a brace span is present.
var ErrNoJSON = fmt.Errorf("%w: no JSON object found in response", ErrMalformedOutput)

// ErrorMarker tags placeholder rows emitted after every attempt failed.
const ErrorMarker = "[생성 실패]"

// Header is the fixed column order shared by the sheet, CSV and store sinks.
var Header = []string{
	"date",
	"original_title",
	"parody_title",
	"setup",
	"punchline",
	"humor_lesson",
	"disclaimer",
	"source_url",
}

type Record struct {
	Date          string `json:"date"`
	OriginalTitle string `json:"original_title"`
	ParodyTitle   string `json:"parody_title"`
	Setup         string `json:"setup"`
	Punchline     string `json:"punchline"`
	HumorLesson   string `json:"humor_lesson"`
	Disclaimer    string `json:"disclaimer"`
	SourceURL     string `json:"source_url"`
}

type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "missing required keys: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldError) Unwrap() error { return ErrMalformedOutput }

type MalformedOutputError struct {
	Err error
}

func (e *MalformedOutputError) Error() string {
	return "invalid JSON: " + e.Err.Error()
}

func (e *MalformedOutputError) Unwrap() []error { return []error{ErrMalformedOutput, e.Err} }

// Row returns the record's values in Header order.
func (r Record) Row() []string {
	return []string{r.Date, r.OriginalTitle, r.ParodyTitle, r.Setup, r.Punchline, r.HumorLesson, r.Disclaimer, r.SourceURL}
}


func (r Record) IsPlaceholder() bool {
	return strings.HasPrefix(r.ParodyTitle, ErrorMarker)
}

// NewRecord validates decoded JSON fields. Every Header key must be present and non-blank;
// scalar values that are not strings are stringified.
func NewRecord(fields map[string]any) (Record, error) {
	values := make(map[string]string, len(Header))
	var missing []string
	for _, key := range Header {
		value := strings.TrimSpace(stringify(fields[key]))
		if value == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = value
	}
	if len(missing) > 0 {
		return Record{}, &MissingFieldError{Fields: missing}
	}
	return fromValues(values), nil
}

// DecodeRecord parses a JSON object and validates it with NewRecord.
func DecodeRecord(text string) (Record, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Record{}, &MalformedOutputError{Err: err}
	}
	if fields == nil {
		return Record{}, &MalformedOutputError{Err: errors.New("top-level value is not an object")}
	}
	return NewRecord(fields)
}

// RecordFromRow maps a stored row back onto a Record using its header line.
// Unknown columns are ignored and absent ones stay empty.
func RecordFromRow(header, row []string) Record {
	values := make(map[string]string, len(Header))
	for i, name := range header {
		if i < len(row) {
			values[strings.TrimSpace(strings.ToLower(name))] = row[i]
		}
	}
	return fromValues(values)
}

func fromValues(v map[string]string) Record {
	return Record{
		Date:          v["date"],
		OriginalTitle: v["original_title"],
		ParodyTitle:   v["parody_title"],
		Setup:         v["setup"],
		Punchline:     v["punchline"],
		HumorLesson:   v["humor_lesson"],
		Disclaimer:    v["disclaimer"],
		SourceURL:     v["source_url"],
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
