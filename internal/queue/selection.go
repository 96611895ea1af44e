package queue

import (
	"sort"
	"sync"
)

// SelectionSet tracks the alerts an analyst has checked on the current page.
// Membership is scoped to currently rendered rows: select-all selects exactly
// the visible page, and any page or filter change empties the set.
type SelectionSet struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewSelectionSet creates an empty selection.
func NewSelectionSet() *SelectionSet {
	return &SelectionSet{ids: make(map[int64]struct{})}
}

// Toggle flips membership of one alert and reports whether it is now selected.
func (s *SelectionSet) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll replaces the selection with exactly the given visible rows.
func (s *SelectionSet) SelectAll(visible []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[int64]struct{}, len(visible))
	for _, id := range visible {
		s.ids[id] = struct{}{}
	}
}

// Remove unchecks one alert.
func (s *SelectionSet) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Clear empties the selection.
func (s *SelectionSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[int64]struct{})
}

// Has reports whether an alert is selected.
func (s *SelectionSet) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Size returns the number of selected alerts.
func (s *SelectionSet) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected alert IDs in ascending order.
func (s *SelectionSet) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
