// Package vector provides cosine similarity and nearest-neighbor queries over embedding spaces.
package vector

import (
	"math"

	"github.com/hyperjump/diachron/internal/space"
)

// InnerProduct returns the inner product of two vectors, accumulated in float64.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Cosine returns dot(a, b) / (|a|·|b|). ok is false when either vector has zero norm
// or the lengths differ.
func Cosine(a, b []float32) (sim float64, ok bool) {
	if len(a) != len(b) {
		return 0, false
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0, false
	}
	return InnerProduct(a, b) / (na * nb), true
}

// Similarity returns the cosine similarity of wordA and wordB inside sp.
func Similarity(sp *space.Space, wordA, wordB string) (float64, error) {
	a, err := sp.Vector(wordA)
	if err != nil {
		return 0, err
	}
	b, err := sp.Vector(wordB)
	if err != nil {
		return 0, err
	}
	if L2Norm(a) == 0 {
		return 0, &space.DegenerateVectorError{Word: wordA, SpaceID: sp.ID()}
	}
	if L2Norm(b) == 0 {
		return 0, &space.DegenerateVectorError{Word: wordB, SpaceID: sp.ID()}
	}
	sim, _ := Cosine(a, b)
	return sim, nil
}
