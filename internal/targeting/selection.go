package targeting

import (
	"slices"
	"sync"
)

// Selection tracks which contact ids are checked. It is not scoped to the current
// filter: ids stay selected when filters change, and may refer to contacts that no
// longer exist.
type Selection struct {
	mu    sync.RWMutex
	order []string
	set   map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{set: make(map[string]struct{})}
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[id]; ok {
		delete(s.set, id)
		s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
		return false
	}
	s.set[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// SelectAll replaces the selection with exactly visibleIDs. Previously selected ids
// outside visibleIDs are dropped.
func (s *Selection) SelectAll(visibleIDs []string) {
	s.Set(visibleIDs)
}

// Set replaces the selection with ids, dropping duplicates.
func (s *Selection) Set(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]string, 0, len(ids))
	s.set = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.set[id]; ok {
			continue
		}
		s.set[id] = struct{}{}
		s.order = append(s.order, id)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.Set(nil)
}

// Count is the selection size; campaign creation is only offered when it is non-zero.
func (s *Selection) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[id]
	return ok
}

// IDs returns a copy of the selected ids in selection order.
func (s *Selection) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}
