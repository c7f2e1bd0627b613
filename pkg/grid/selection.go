package grid

// Selection is an insertion-ordered set of row keys.
type Selection struct {
	keys  []string
	index map[string]int
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{index: make(map[string]int)}
}

// Has reports whether key is selected.
func (s *Selection) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Len is the number of selected keys.
func (s *Selection) Len() int {
	return len(s.keys)
}

// Keys returns the selected keys in the order they were selected.
func (s *Selection) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Add selects key and reports whether it was newly added.
func (s *Selection) Add(key string) bool {
	if s.Has(key) {
		return false
	}
	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
	return true
}

// Remove deselects key and reports whether it was selected.
func (s *Selection) Remove(key string) bool {
	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	delete(s.index, key)
	for j := i; j < len(s.keys); j++ {
		s.index[s.keys[j]] = j
	}
	return true
}

// Toggle flips key and reports whether it is now selected.
func (s *Selection) Toggle(key string) bool {
	if s.Remove(key) {
		return false
	}
	s.Add(key)
	return true
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.keys = nil
	s.index = make(map[string]int)
}
