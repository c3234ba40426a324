package game

import (
	"abbrev-quiz-service/internal/domain"
	"github.com/samber/lo"
)

var categoryEmoji = map[string]string{
	"Medical":    "⚕️",
	"Technology": "💻",
	"Business":   "💼",
	"Science":    "🔬",
	"Education":  "📚",
}

const defaultEmoji = "📋"

// Pool is the read-only question pool shared by every session.
type Pool struct {
	items []domain.QuizItem
}

// NewPool copies items so later changes by the caller cannot leak into sessions.
func NewPool(items []domain.QuizItem) *Pool {
	cp := make([]domain.QuizItem, len(items))
	for i, item := range items {
		item.Options = append([]string(nil), item.Options...)
		cp[i] = item
	}
	return &Pool{items: cp}
}

// Len returns the total number of items.
func (p *Pool) Len() int {
	return len(p.items)
}

// Items returns a copy of all items.
func (p *Pool) Items() []domain.QuizItem {
	return append([]domain.QuizItem(nil), p.items...)
}

// Filter returns the items of a category, or every item for domain.AllCategories.
func (p *Pool) Filter(category string) []domain.QuizItem {
	if category == domain.AllCategories {
		return p.Items()
	}
	return lo.Filter(p.items, func(item domain.QuizItem, _ int) bool {
		return item.Category == category
	})
}

// HasCategory reports whether any item belongs to category.
func (p *Pool) HasCategory(category string) bool {
	if category == domain.AllCategories {
		return len(p.items) > 0
	}
	return lo.ContainsBy(p.items, func(item domain.QuizItem) bool {
		return item.Category == category
	})
}

// Categories lists categories in first-seen order followed by the "all" entry.
func (p *Pool) Categories() []domain.CategorySummary {
	names := lo.Uniq(lo.Map(p.items, func(item domain.QuizItem, _ int) string {
		return item.Category
	}))
	counts := lo.CountValuesBy(p.items, func(item domain.QuizItem) string {
		return item.Category
	})

	out := make([]domain.CategorySummary, 0, len(names)+1)
	for _, name := range names {
		out = append(out, domain.CategorySummary{
			Name:  name,
			Emoji: emojiFor(name),
			Count: counts[name],
		})
	}
	return append(out, domain.CategorySummary{
		Name:  domain.AllCategories,
		Emoji: "🌟",
		Count: len(p.items),
	})
}

func emojiFor(category string) string {
	if e, ok := categoryEmoji[category]; ok {
		return e
	}
	return defaultEmoji
}
