package game

import (
	"errors"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"abbrev-quiz-service/internal/domain"
)

func TestSelectorSkipsAnsweredPrompts(t *testing.T) {
	pool := NewPool(samplePool())
	sel := NewSelectorWithSource(rand.NewSource(7))

	answered := PromptSet{}.With("MRI")
	for i := 0; i < 50; i++ {
		q, err := sel.Select(pool, "Medical", answered)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if q.Prompt != "ECG" {
			t.Fatalf("expected the only unanswered medical item, got %s", q.Prompt)
		}
	}
}

func TestSelectorReportsExhaustion(t *testing.T) {
	pool := NewPool(samplePool())
	sel := NewSelectorWithSource(rand.NewSource(1))

	answered := PromptSet{}.With("MRI").With("ECG")
	if _, err := sel.Select(pool, "Medical", answered); !errors.Is(err, domain.ErrPoolExhausted) {
		t.Fatalf("expected exhaustion, got %v", err)
	}
	if _, err := sel.Select(pool, "Nope", PromptSet{}); !errors.Is(err, domain.ErrPoolExhausted) {
		t.Fatalf("expected exhaustion for empty category, got %v", err)
	}
}

func TestSelectorAllUsesWholePool(t *testing.T) {
	pool := NewPool(samplePool())
	sel := NewSelectorWithSource(rand.NewSource(3))

	seen := map[string]bool{}
	answered := PromptSet{}
	for {
		q, err := sel.Select(pool, domain.AllCategories, answered)
		if errors.Is(err, domain.ErrPoolExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if seen[q.Prompt] {
			t.Fatalf("prompt %s repeated", q.Prompt)
		}
		seen[q.Prompt] = true
		answered = answered.With(q.Prompt)
	}
	if len(seen) != pool.Len() {
		t.Fatalf("expected %d prompts, saw %d", pool.Len(), len(seen))
	}
}

func TestSelectorShuffleReachesEveryPermutation(t *testing.T) {
	pool := NewPool([]domain.QuizItem{
		{Abbreviation: "ABC", CorrectAnswer: "a", Options: []string{"a", "b", "c"}, Category: "X"},
	})
	sel := NewSelectorWithSource(rand.NewSource(42))

	perms := map[string]int{}
	for i := 0; i < 600; i++ {
		q, err := sel.Select(pool, "X", PromptSet{})
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		perms[strings.Join(q.Options, "")]++
	}
	if len(perms) != 6 {
		t.Fatalf("expected all 6 permutations, got %v", perms)
	}
}

func TestSelectorDoesNotMutatePoolOptions(t *testing.T) {
	items := samplePool()
	pool := NewPool(items)
	sel := NewSelectorWithSource(rand.NewSource(9))

	for i := 0; i < 20; i++ {
		q, _ := sel.Select(pool, "Medical", PromptSet{})
		got := append([]string(nil), q.Options...)
		sort.Strings(got)
		if len(got) != 4 {
			t.Fatalf("expected 4 options, got %v", q.Options)
		}
	}
	if pool.Filter("Medical")[0].Options[0] != items[0].Options[0] {
		t.Fatalf("pool options were reordered")
	}
}

func TestPromptSetIsCopyOnWrite(t *testing.T) {
	base := PromptSet{}.With("A")
	next := base.With("B")

	if base.Has("B") || base.Len() != 1 {
		t.Fatalf("base set mutated: %v", base.Slice())
	}
	if !next.Has("A") || !next.Has("B") || next.Len() != 2 {
		t.Fatalf("unexpected next set: %v", next.Slice())
	}
	if again := next.With("A"); again.Len() != 2 {
		t.Fatalf("duplicate add changed size: %v", again.Slice())
	}
}

func TestPoolCategories(t *testing.T) {
	pool := NewPool(samplePool())
	cats := pool.Categories()

	want := []domain.CategorySummary{
		{Name: "Medical", Emoji: "⚕️", Count: 2},
		{Name: "Technology", Emoji: "💻", Count: 2},
		{Name: "Gaming", Emoji: "📋", Count: 1},
		{Name: domain.AllCategories, Emoji: "🌟", Count: 5},
	}
	if len(cats) != len(want) {
		t.Fatalf("expected %d categories, got %+v", len(want), cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Fatalf("category %d: expected %+v, got %+v", i, want[i], cats[i])
		}
	}
	if !pool.HasCategory("Gaming") || pool.HasCategory("Law") {
		t.Fatalf("unexpected HasCategory results")
	}
}

func samplePool() []domain.QuizItem {
	return []domain.QuizItem{
		{Abbreviation: "MRI", CorrectAnswer: "Magnetic Resonance Imaging", Options: []string{"Magnetic Resonance Imaging", "Medical Radio Imaging", "Motor Reflex Index", "Multiple Rate Infusion"}, Category: "Medical"},
		{Abbreviation: "ECG", CorrectAnswer: "Electrocardiogram", Options: []string{"Electrocardiogram", "Echo Cardio Graph", "Electronic Care Guide", "Emergency Cardiac Gauge"}, Category: "Medical"},
		{Abbreviation: "CPU", CorrectAnswer: "Central Processing Unit", Options: []string{"Central Processing Unit", "Computer Power Unit", "Core Program Utility", "Central Peripheral Unit"}, Category: "Technology"},
		{Abbreviation: "RAM", CorrectAnswer: "Random Access Memory", Options: []string{"Random Access Memory", "Read And Modify", "Rapid Application Memory", "Remote Access Module"}, Category: "Technology"},
		{Abbreviation: "NPC", CorrectAnswer: "Non-Player Character", Options: []string{"Non-Player Character", "New Player Camera", "Network Play Client", "Null Pointer Check"}, Category: "Gaming"},
	}
}
