package space

// OrderedSet is a deduplicating set of words that remembers insertion order.
type OrderedSet struct {
	items []string
	seen  map[string]struct{}
}

// NewOrderedSet returns an empty set.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{seen: make(map[string]struct{})}
}

// Add inserts word if it is not yet present and reports whether it was added.
func (s *OrderedSet) Add(word string) bool {
	if _, ok := s.seen[word]; ok {
		return false
	}
	s.seen[word] = struct{}{}
	s.items = append(s.items, word)
	return true
}

// Has reports membership.
func (s *OrderedSet) Has(word string) bool {
	_, ok := s.seen[word]
	return ok
}

// Len returns the number of distinct words.
func (s *OrderedSet) Len() int { return len(s.items) }

// Items returns the words in first-seen order.
func (s *OrderedSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Filter returns a new set with the words for which keep returns true, order preserved.
func (s *OrderedSet) Filter(keep func(word string) bool) *OrderedSet {
	out := NewOrderedSet()
	for _, w := range s.items {
		if keep(w) {
			out.Add(w)
		}
	}
	return out
}
