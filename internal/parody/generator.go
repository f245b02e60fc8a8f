package parody

import (
	"context"
	"errors"
	"fmt"

	"stock-parody/manager-go/internal/llm"
	"stock-parody/manager-go/internal/news"
	"stock-parody/manager-go/internal/utils"
)

const DefaultAttempts = 3

// Attempt is the outcome of one generate-and-validate round trip. Raw is empty when
// the call itself failed.
type Attempt struct {
	Raw    string
	Record *Record
	Err    error
}

type Result struct {
	Records   []Record
	Accepted  int
	Defaulted int
	Skipped   int
}

func (r Result) Summary() string {
	return fmt.Sprintf("records=%d accepted=%d defaulted=%d skipped=%d", len(r.Records), r.Accepted, r.Defaulted, r.Skipped)
}

type Generator struct {
	Client      llm.Client
	Model       string
	Temperature float64
	MaxTokens   int
	Attempts    int
	// Date and Disclaimer are stamped onto every record regardless of model output.
	Date       string
	Disclaimer string
	Prompt     PromptBuilder
}

// Generate produces one record per distinct item title, in input order. Items that
// exhaust their attempts yield a placeholder; cancellation and non-retryable API
// errors abort the whole batch.
func (g *Generator) Generate(ctx context.Context, items []news.Item) (Result, error) {
	logger := utils.Stage("generate")
	history := &History{}
	seen := make(map[string]struct{}, len(items))
	var result Result

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, dup := seen[item.Title]; dup {
			logger.Warn("skipping duplicate title", "title", item.Title)
			result.Skipped++
			continue
		}
		seen[item.Title] = struct{}{}

		logger.Info("generating parody", "item", i+1, "total", len(items), "title", item.Title)
		record, accepted, err := g.generateOne(ctx, item, history)
		if err != nil {
			return result, fmt.Errorf("item %d %q: %w", i+1, item.Title, err)
		}
		result.Records = append(result.Records, record)
		if accepted {
			history.Add(record)
			result.Accepted++
		} else {
			result.Defaulted++
		}
	}
	return result, nil
}

func (g *Generator) generateOne(ctx context.Context, item news.Item, history *History) (Record, bool, error) {
	logger := utils.Stage("generate")
	base := g.prompt()(item, g.Date, g.Disclaimer) + history.PromptBlock()
	attempts := g.attempts()

	var last Attempt
	for n := 1; n <= attempts; n++ {
		messages := []llm.Message{llm.UserMessage(base)}
		if n > 1 && last.Raw != "" {
			messages = append(messages,
				llm.AssistantMessage(last.Raw),
				llm.UserMessage(RepairMessage(last.Raw, last.Err)),
			)
		}
		last = g.attempt(ctx, item, messages)
		if last.Err == nil {
			return *last.Record, true, nil
		}
		if !recoverable(last.Err) {
			return Record{}, false, last.Err
		}
		logger.Warn("attempt failed", "attempt", n, "max", attempts, "err", last.Err)
	}
	logger.Error("giving up on item, writing placeholder", "title", item.Title, "err", last.Err)
	return Placeholder(item, g.Date, g.Disclaimer, last.Err), false, nil
}

func (g *Generator) attempt(ctx context.Context, item news.Item, messages []llm.Message) Attempt {
	raw, err := g.Client.Complete(ctx, llm.Request{
		Model:       g.Model,
		Messages:    messages,
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
	})
	if err != nil {
		return Attempt{Err: err}
	}
	text, ok := ExtractJSON(raw)
	if !ok {
		return Attempt{Raw: raw, Err: ErrNoJSON}
	}
	record, err := DecodeRecord(text)
	if err != nil {
		return Attempt{Raw: raw, Err: err}
	}
	record = g.stamp(record, item)
	return Attempt{Raw: raw, Record: &record}
}

// stamp overwrites the fields whose values are known without asking the model.
func (g *Generator) stamp(r Record, item news.Item) Record {
	r.Date = g.Date
	r.Disclaimer = g.Disclaimer
	if item.Title != "" {
		r.OriginalTitle = item.Title
	}
	if item.Link != "" {
		r.SourceURL = item.Link
	}
	return r
}

func (g *Generator) attempts() int {
	if g.Attempts <= 0 {
		return DefaultAttempts
	}
	return g.Attempts
}

func (g *Generator) prompt() PromptBuilder {
	if g.Prompt == nil {
		return BuildParodyPrompt
	}
	return g.Prompt
}

func recoverable(err error) bool {
	return errors.Is(err, ErrMalformedOutput) || errors.Is(err, llm.ErrRetriesExhausted)
}

// Placeholder is the record written for an item whose attempts all failed, so the
// sinks still receive a complete row.
func Placeholder(item news.Item, date, disclaimer string, cause error) Record {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return Record{
		Date:          date,
		OriginalTitle: item.Title,
		ParodyTitle:   ErrorMarker + " " + item.Title,
		Setup:         ErrorMarker + " " + msg,
		Punchline:     ErrorMarker,
		HumorLesson:   "-",
		Disclaimer:    disclaimer,
		SourceURL:     item.Link,
	}
}
