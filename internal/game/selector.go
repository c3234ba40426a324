package game

import (
	"math/rand"
	"sync"
	"time"

	"abbrev-quiz-service/internal/domain"
	"github.com/samber/lo"
)

// Question is a selected item with its options in presentation order.
type Question struct {
	Prompt        string
	CorrectAnswer string
	Options       []string
	Category      string
}

// Selector picks unanswered questions at random. It is safe for concurrent use.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSelector seeds from the wall clock.
func NewSelector() *Selector {
	return NewSelectorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewSelectorWithSource allows deterministic selection in tests.
func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{rnd: rand.New(src)}
}

// Select returns a random item of category whose prompt is not in answered,
// with a uniformly shuffled copy of its options. domain.ErrPoolExhausted is
// returned when nothing is left.
func (s *Selector) Select(pool *Pool, category string, answered PromptSet) (Question, error) {
	available := lo.Filter(pool.Filter(category), func(item domain.QuizItem, _ int) bool {
		return !answered.Has(item.Abbreviation)
	})
	if len(available) == 0 {
		return Question{}, domain.ErrPoolExhausted
	}

	s.mu.Lock()
	picked := available[s.rnd.Intn(len(available))]
	options := append([]string(nil), picked.Options...)
	// Fisher-Yates; every permutation is reachable.
	s.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	s.mu.Unlock()

	return Question{
		Prompt:        picked.Abbreviation,
		CorrectAnswer: picked.CorrectAnswer,
		Options:       options,
		Category:      picked.Category,
	}, nil
}
