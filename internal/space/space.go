// Package space defines the embedding space of one period and the vocabulary helpers built on it.
package space

import "fmt"

// Space is a loaded mapping from word to vector for one period.
// A Space is immutable once built; transformations produce a new Space.
// Words keep the order in which they were added (the order of the persisted model file);
// that order is the vocabulary iteration order used for intersection and tie-breaking.
type Space struct {
	id          string
	dimension   int
	words       []string
	index       map[string]int
	vectors     [][]float32
	referenceID string // set when the space is the result of an alignment
}

// Builder accumulates words and vectors for a new Space.
type Builder struct {
	sp  *Space
	err error
}

// NewBuilder starts a Space with the given period id and dimension.
// sizeHint preallocates room for that many words and may be zero.
func NewBuilder(id string, dimension, sizeHint int) *Builder {
	b := &Builder{sp: &Space{
		id:        id,
		dimension: dimension,
		words:     make([]string, 0, sizeHint),
		index:     make(map[string]int, sizeHint),
		vectors:   make([][]float32, 0, sizeHint),
	}}
	if dimension <= 0 {
		b.err = fmt.Errorf("space %q: dimension must be positive, got %d", id, dimension)
	}
	return b
}

// Add appends word with a copy of vec. The first occurrence of a word wins; later
// duplicates are ignored. A vector of the wrong length fails the whole build.
func (b *Builder) Add(word string, vec []float32) *Builder {
	if b.err != nil {
		return b
	}
	if len(vec) != b.sp.dimension {
		b.err = &IncompatibleSpaceError{
			SourceID:     b.sp.id,
			ReferenceID:  b.sp.id,
			SourceDim:    len(vec),
			ReferenceDim: b.sp.dimension,
		}
		return b
	}
	if _, ok := b.sp.index[word]; ok {
		return b
	}
	v := make([]float32, len(vec))
	copy(v, vec)
	b.sp.index[word] = len(b.sp.words)
	b.sp.words = append(b.sp.words, word)
	b.sp.vectors = append(b.sp.vectors, v)
	return b
}

// Build returns the finished Space. The builder must not be used afterwards.
func (b *Builder) Build() (*Space, error) {
	if b.err != nil {
		return nil, b.err
	}
	sp := b.sp
	b.sp = nil
	return sp, nil
}

// FromWords builds a Space from parallel word and vector slices.
func FromWords(id string, words []string, vectors [][]float32) (*Space, error) {
	if len(words) != len(vectors) {
		return nil, fmt.Errorf("space %q: words and vectors length mismatch (%d vs %d)", id, len(words), len(vectors))
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	b := NewBuilder(id, dim, len(words))
	for i, w := range words {
		b.Add(w, vectors[i])
	}
	return b.Build()
}

// ID returns the period label of the space.
func (s *Space) ID() string { return s.id }

// Dimension returns the length of every vector in the space.
func (s *Space) Dimension() int { return s.dimension }

// Len returns the vocabulary size.
func (s *Space) Len() int { return len(s.words) }

// Has reports whether word is part of the vocabulary.
func (s *Space) Has(word string) bool {
	_, ok := s.index[word]
	return ok
}

// Words returns a copy of the vocabulary in iteration order.
func (s *Space) Words() []string {
	out := make([]string, len(s.words))
	copy(out, s.words)
	return out
}

// WordAt returns the i-th word in iteration order.
func (s *Space) WordAt(i int) string { return s.words[i] }

// Vector returns a copy of the vector for word.
func (s *Space) Vector(word string) ([]float32, error) {
	i, ok := s.index[word]
	if !ok {
		return nil, &WordNotFoundError{Word: word, SpaceID: s.id}
	}
	out := make([]float32, s.dimension)
	copy(out, s.vectors[i])
	return out, nil
}

// Each calls fn for every word in iteration order with a read-only view of its vector.
// fn must not modify or retain vec. Iteration stops when fn returns false.
func (s *Space) Each(fn func(i int, word string, vec []float32) bool) {
	for i, w := range s.words {
		if !fn(i, w, s.vectors[i]) {
			return
		}
	}
}

// Aligned reports whether the space was produced by aligning onto another space.
func (s *Space) Aligned() bool { return s.referenceID != "" }

// ReferenceID returns the id of the space this one was aligned onto, or "".
func (s *Space) ReferenceID() string { return s.referenceID }

// Map returns a new Space with the same id and vocabulary order whose vectors are fn(vec).
// fn receives a read-only view and must return a fresh slice of length dim.
// referenceID marks the result as aligned onto that space; pass "" to keep it unaligned.
func (s *Space) Map(dim int, referenceID string, fn func(vec []float32) []float32) (*Space, error) {
	out := &Space{
		id:          s.id,
		dimension:   dim,
		words:       make([]string, len(s.words)),
		index:       make(map[string]int, len(s.words)),
		vectors:     make([][]float32, len(s.vectors)),
		referenceID: referenceID,
	}
	copy(out.words, s.words)
	for w, i := range s.index {
		out.index[w] = i
	}
	for i, v := range s.vectors {
		nv := fn(v)
		if len(nv) != dim {
			return nil, &IncompatibleSpaceError{SourceID: s.id, ReferenceID: referenceID, SourceDim: len(nv), ReferenceDim: dim}
		}
		out.vectors[i] = nv
	}
	return out, nil
}
