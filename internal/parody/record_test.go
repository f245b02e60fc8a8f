package parody

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

const validJSON = `{
  "date": "2025-07-17",
  "original_title": "코스피 3000 돌파",
  "parody_title": "삼천피의 꿈",
  "setup": "코스피가 3000을 넘었다",
  "punchline": "내 계좌는 아직 300",
  "humor_lesson": "지수와 내 계좌는 남남",
  "disclaimer": "면책조항",
  "source_url": "https://example.com/a"
}`

func TestDecodeRecord(t *testing.T) {
	record, err := DecodeRecord(validJSON)
	assert.Equal(t, nil, err)
	assert.Equal(t, "삼천피의 꿈", record.ParodyTitle)
	assert.Equal(t, len(Header), len(record.Row()))
	assert.Equal(t, "내 계좌는 아직 300", record.Row()[4])
}

func TestDecodeRecordMissingFields(t *testing.T) {
	_, err := DecodeRecord(`{"date":"2025-07-17","original_title":"x","parody_title":"  ","setup":"s","punchline":"p","humor_lesson":"h","disclaimer":"d"}`)
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	assert.Equal(t, []string{"parody_title", "source_url"}, missing.Fields)
	assert.Equal(t, true, errors.Is(err, ErrMalformedOutput))
}

func TestDecodeRecordInvalidJSON(t *testing.T) {
	for _, text := range []string{`{"date": `, `[1,2]`, `null`} {
		_, err := DecodeRecord(text)
		var malformed *MalformedOutputError
		if !errors.As(err, &malformed) {
			t.Errorf("DecodeRecord(%q) = %v, want MalformedOutputError", text, err)
		}
		if !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("DecodeRecord(%q) does not wrap ErrMalformedOutput", text)
		}
	}
}

func TestNewRecordStringifiesScalars(t *testing.T) {
	record, err := NewRecord(map[string]any{
		"date":           "2025-07-17",
		"original_title": "t",
		"parody_title":   "p",
		"setup":          float64(3000),
		"punchline":      true,
		"humor_lesson":   []any{"a", "b"},
		"disclaimer":     "d",
		"source_url":     "u",
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, "3000", record.Setup)
	assert.Equal(t, "true", record.Punchline)
	assert.Equal(t, `["a","b"]`, record.HumorLesson)
}

func TestRecordFromRow(t *testing.T) {
	header := []string{"Parody_Title", "date", "extra"}
	record := RecordFromRow(header, []string{"p", "2025-07-17"})
	assert.Equal(t, "p", record.ParodyTitle)
	assert.Equal(t, "2025-07-17", record.Date)
	assert.Equal(t, "", record.SourceURL)
}

func TestHistoryPromptBlock(t *testing.T) {
	h := &History{}
	assert.Equal(t, "", h.PromptBlock())

	h.Add(Record{ParodyTitle: "삼천피의 꿈"})
	h.Add(Record{ParodyTitle: ErrorMarker + " x"})
	h.Add(Record{ParodyTitle: "반도체 롤러코스터"})
	assert.Equal(t, 2, h.Len())
	block := h.PromptBlock()
	assert.MatchRegex(t, block, `(?s)이미 생성된 제목 목록:\n- 삼천피의 꿈\n- 반도체 롤러코스터\n$`)
}
