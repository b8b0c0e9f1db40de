package checker

import (
	"context"
	"slices"
	"sync"
)

// Static answers from a fixed table. Words missing from the table are
// correct. It backs tests and dry runs without an installed engine.
type Static struct {
	mu          sync.Mutex
	verdicts    map[string]Verdict
	unavailable bool
	closed      bool
	calls       map[string]int
}

// NewStatic returns a checker that reports the given words as unknown with
// the listed suggestions.
func NewStatic(unknown map[string][]string) *Static {
	s := &Static{
		verdicts: make(map[string]Verdict, len(unknown)),
		calls:    make(map[string]int),
	}
	for w, sugg := range unknown {
		s.verdicts[w] = Verdict{Suggestions: slices.Clone(sugg)}
	}
	return s
}

// Name returns "static".
func (s *Static) Name() string { return BackendStatic }

// Check looks word up in the table.
func (s *Static) Check(ctx context.Context, word string) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[word]++
	if s.closed {
		return Verdict{}, unavailable("checker closed")
	}
	if s.unavailable {
		return Verdict{}, unavailable("backend disabled")
	}
	v, ok := s.verdicts[word]
	if !ok {
		return Verdict{Correct: true}, nil
	}
	return Verdict{Suggestions: slices.Clone(v.Suggestions)}, nil
}

// SetUnknown marks word as misspelled with the given suggestions.
func (s *Static) SetUnknown(word string, suggestions ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts[word] = Verdict{Suggestions: slices.Clone(suggestions)}
}

// SetUnavailable makes every following Check fail with ErrBackendUnavailable.
func (s *Static) SetUnavailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = v
}

// Calls reports how often word was checked.
func (s *Static) Calls(word string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[word]
}

// TotalCalls reports the number of Check calls.
func (s *Static) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Close marks the checker closed.
func (s *Static) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
