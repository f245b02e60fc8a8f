package parody

import (
	"context"
	"strconv"
	"strings"

	"stock-parody/manager-go/internal/llm"
	"stock-parody/manager-go/internal/news"
	"stock-parody/manager-go/internal/utils"
)

// Ranker reorders news by importance using one model call. It never fails: any
// problem falls back to the input order.
type Ranker struct {
	Client      llm.Client
	Model       string
	Temperature float64
	MaxTokens   int
	Pick        int
}

func (r *Ranker) Rank(ctx context.Context, items []news.Item) []news.Item {
	logger := utils.Stage("rank")
	if len(items) <= 1 {
		return items
	}
	raw, err := r.Client.Complete(ctx, llm.Request{
		Model:       r.Model,
		Messages:    []llm.Message{llm.UserMessage(BuildRankPrompt(items, r.Pick))},
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		logger.Warn("ranking call failed, keeping original order", "err", err)
		return items
	}
	order, ok := ParseRanking(raw, len(items))
	if !ok {
		logger.Warn("no usable ids in ranking, keeping original order", "response", raw)
		return items
	}
	ranked := make([]news.Item, 0, len(items))
	for _, id := range order {
		ranked = append(ranked, items[id])
	}
	logger.Info("ranked news", "items", len(ranked))
	return ranked
}

// ParseRanking turns "5,12,3" into a permutation of [0,n). Unparseable, out of range
// and repeated tokens are dropped, and unmentioned ids follow in their original order.
// ok is false when not a single valid id was found; order is then the identity.
func ParseRanking(text string, n int) ([]int, bool) {
	seen := make([]bool, n)
	order := make([]int, 0, n)
	for _, token := range strings.Split(text, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || id < 0 || id >= n || seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
	}
	ok := len(order) > 0
	for id := 0; id < n; id++ {
		if !seen[id] {
			order = append(order, id)
		}
	}
	return order, ok
}
