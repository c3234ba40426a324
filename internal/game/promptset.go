package game

import "sort"

// PromptSet is an immutable set of prompts. With returns a new set and never
// mutates the receiver, so snapshots handed out earlier stay valid.
type PromptSet struct {
	m map[string]struct{}
}

// Has reports membership. The zero PromptSet is empty.
func (s PromptSet) Has(prompt string) bool {
	_, ok := s.m[prompt]
	return ok
}

// With returns a set containing prompt. If prompt is already present the receiver is returned.
func (s PromptSet) With(prompt string) PromptSet {
	if s.Has(prompt) {
		return s
	}
	next := make(map[string]struct{}, len(s.m)+1)
	for k := range s.m {
		next[k] = struct{}{}
	}
	next[prompt] = struct{}{}
	return PromptSet{m: next}
}

// Len returns the number of prompts.
func (s PromptSet) Len() int {
	return len(s.m)
}

// Slice returns the prompts sorted.
func (s PromptSet) Slice() []string {
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
