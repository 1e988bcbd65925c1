// Package align computes orthogonal Procrustes alignments between embedding spaces.
//
// Two spaces trained on different periods share no coordinate system: training is only
// defined up to rotation and reflection. Align finds the orthogonal matrix R minimizing
//
//	sum_w |S_w·R - T_w|²
//
// over the shared vocabulary w, where S are source and T reference vectors. With the
// cross-covariance M = Sᵗ·T = U·Σ·Vᵗ the solution is R = U·Vᵗ.
package align

import (
	"fmt"
	"math"

	"github.com/hyperjump/diachron/internal/space"
	"gonum.org/v1/gonum/mat"
)

// Transform is an orthogonal dim×dim matrix mapping a source space onto a reference space.
// It is a pure value: applying it never mutates anything.
type Transform struct {
	SourceID    string
	ReferenceID string
	// SharedWords is the size of the vocabulary intersection the transform was solved on.
	SharedWords int
	// Residual is the sum of squared distances between aligned source rows and reference
	// rows over the shared vocabulary.
	Residual float64

	r *mat.Dense
}

// NewTransform builds a Transform from a row-major dim×dim matrix.
func NewTransform(sourceID, referenceID string, dim int, data []float64) (*Transform, error) {
	if dim <= 0 || len(data) != dim*dim {
		return nil, fmt.Errorf("transform %q->%q: want %d values for dimension %d, got %d",
			sourceID, referenceID, dim*dim, dim, len(data))
	}
	raw := make([]float64, len(data))
	copy(raw, data)
	return &Transform{SourceID: sourceID, ReferenceID: referenceID, r: mat.NewDense(dim, dim, raw)}, nil
}

// Dimension returns the side length of R.
func (t *Transform) Dimension() int {
	r, _ := t.r.Dims()
	return r
}

// Matrix returns a copy of R.
func (t *Transform) Matrix() *mat.Dense {
	return mat.DenseCopyOf(t.r)
}

// Raw returns R in row-major order.
func (t *Transform) Raw() []float64 {
	raw := t.r.RawMatrix()
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		out = append(out, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols]...)
	}
	return out
}

// Apply returns vec·R as a new vector.
func (t *Transform) Apply(vec []float32) []float32 {
	dim := t.Dimension()
	out := make([]float32, dim)
	for j := 0; j < dim; j++ {
		var sum float64
		for i := 0; i < dim; i++ {
			sum += float64(vec[i]) * t.r.At(i, j)
		}
		out[j] = float32(sum)
	}
	return out
}

// ApplySpace returns a new space with every vector of sp multiplied by R. The full
// vocabulary of sp is kept, not just the shared words used to solve R.
func (t *Transform) ApplySpace(sp *space.Space) (*space.Space, error) {
	if sp.Dimension() != t.Dimension() {
		return nil, &space.IncompatibleSpaceError{
			SourceID:     sp.ID(),
			ReferenceID:  t.ReferenceID,
			SourceDim:    sp.Dimension(),
			ReferenceDim: t.Dimension(),
		}
	}
	return sp.Map(t.Dimension(), t.ReferenceID, t.Apply)
}

// OrthogonalityError returns max |(RᵗR - I)_ij|.
func (t *Transform) OrthogonalityError() float64 {
	var rtr mat.Dense
	rtr.Mul(t.r.T(), t.r)
	dim := t.Dimension()
	var worst float64
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			worst = math.Max(worst, math.Abs(rtr.At(i, j)-want))
		}
	}
	return worst
}
