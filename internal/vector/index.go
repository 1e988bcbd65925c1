package vector

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hyperjump/diachron/internal/space"
	"github.com/hyperjump/diachron/pkg/utils"
)

// ErrInvalidN is returned when the requested number of neighbors is not positive.
var ErrInvalidN = errors.New("n must be positive")

// Neighbor is a single nearest-neighbor hit.
type Neighbor struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Neighbors is ordered by descending Score.
type Neighbors []Neighbor

// Words returns the neighbor words in rank order.
func (ns Neighbors) Words() []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Word
	}
	return out
}

// Index is a brute-force cosine index over one space. It keeps unit-length copies of the
// vectors so repeated queries do not renormalize the vocabulary.
//
// Ties are broken by vocabulary order (the order of the model file). That order carries no
// meaning; it is only stable for a given file.
type Index struct {
	sp   *space.Space
	unit [][]float64 // nil entry for zero-norm vectors
}

// NewIndex builds an index over sp.
func NewIndex(sp *space.Space) *Index {
	ix := &Index{sp: sp, unit: make([][]float64, sp.Len())}
	sp.Each(func(i int, _ string, vec []float32) bool {
		ix.unit[i] = unitVector(vec)
		return true
	})
	return ix
}

// Space returns the indexed space.
func (ix *Index) Space() *space.Space { return ix.sp }

// Neighbors returns the n words closest to word, excluding word itself.
func (ix *Index) Neighbors(word string, n int) (Neighbors, error) {
	vec, err := ix.sp.Vector(word)
	if err != nil {
		return nil, err
	}
	res, err := ix.Search(vec, n, word)
	if errors.Is(err, space.ErrDegenerateVector) {
		return nil, &space.DegenerateVectorError{Word: word, SpaceID: ix.sp.ID()}
	}
	return res, err
}

// Search ranks every vocabulary word except exclude by cosine similarity to query
// and returns the top n. Words with zero-norm vectors are never returned.
func (ix *Index) Search(query []float32, n int, exclude string) (Neighbors, error) {
	if n <= 0 {
		return nil, ErrInvalidN
	}
	if len(query) != ix.sp.Dimension() {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), ix.sp.Dimension())
	}
	q := unitVector(query)
	if q == nil {
		return nil, &space.DegenerateVectorError{SpaceID: ix.sp.ID()}
	}
	scores := make([]Neighbor, 0, len(ix.unit))
	for i, u := range ix.unit {
		if u == nil {
			continue
		}
		w := ix.sp.WordAt(i)
		if w == exclude {
			continue
		}
		var dot float64
		for j := range u {
			dot += q[j] * u[j]
		}
		scores = append(scores, Neighbor{Word: w, Score: dot})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if n > len(scores) {
		n = len(scores)
	}
	out := make(Neighbors, n)
	copy(out, scores[:n])
	return out, nil
}

// NearestNeighbors returns the top n neighbors of word inside sp.
// Use NewIndex when querying the same space repeatedly.
func NearestNeighbors(sp *space.Space, word string, n int) (Neighbors, error) {
	return NewIndex(sp).Neighbors(word, n)
}

func unitVector(vec []float32) []float64 {
	u := utils.Widen(vec)
	if utils.NormalizeL2(u) == 0 {
		return nil
	}
	return u
}
