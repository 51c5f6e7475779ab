package tasks

import "sync"

// Selection is the set of selected task ids. It remembers insertion order so bulk actions run in the order the
// user picked.
type Selection struct {
	mu    sync.Mutex
	order []int64
	set   map[int64]struct{}
}

func NewSelection() *Selection {
	return &Selection{set: make(map[int64]struct{})}
}

// Toggle flips id and reports whether it is now selected.
func (s *Selection) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[id]; ok {
		s.remove(id)
		return false
	}
	s.add(id)
	return true
}

// Add selects id. Adding a selected id is a no-op.
func (s *Selection) Add(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(id)
}

// SelectAll replaces the selection with ids.
func (s *Selection) SelectAll(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.set = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		s.add(id)
	}
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.set = make(map[int64]struct{})
}

// Retain drops every id not in visible.
func (s *Selection) Retain(visible []int64) {
	keep := make(map[int64]struct{}, len(visible))
	for _, id := range visible {
		keep[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range append([]int64(nil), s.order...) {
		if _, ok := keep[id]; !ok {
			s.remove(id)
		}
	}
}

func (s *Selection) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set[id]
	return ok
}

// IDs returns the selected ids in insertion order.
func (s *Selection) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.order...)
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Selection) add(id int64) {
	if _, ok := s.set[id]; ok {
		return
	}
	s.set[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Selection) remove(id int64) {
	delete(s.set, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			return
		}
	}
}
