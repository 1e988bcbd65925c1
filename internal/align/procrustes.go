package align

import (
	"fmt"
	"math"

	"github.com/hyperjump/diachron/internal/space"
	"github.com/hyperjump/diachron/pkg/utils"
	"gonum.org/v1/gonum/mat"
)

type solveOptions struct {
	unitNormalize bool
	minShared     int
}

// Option configures how a transform is solved.
type Option func(*solveOptions)

// WithUnitNormalization solves R on unit-length rows instead of raw vectors, so frequent
// words with long vectors do not dominate the fit. R is still applied to raw vectors.
func WithUnitNormalization() Option {
	return func(o *solveOptions) { o.unitNormalize = true }
}

// WithMinShared rejects intersections smaller than k words.
func WithMinShared(k int) Option {
	return func(o *solveOptions) {
		if k > 0 {
			o.minShared = k
		}
	}
}

func buildOptions(opts []Option) solveOptions {
	o := solveOptions{minShared: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// variant names the solve options for cache keys.
func (o solveOptions) variant() string {
	return fmt.Sprintf("unit=%t,min=%d", o.unitNormalize, o.minShared)
}

// Solve computes the orthogonal transform mapping source onto reference.
func Solve(source, reference *space.Space, opts ...Option) (*Transform, error) {
	o := buildOptions(opts)
	if source.Dimension() != reference.Dimension() {
		return nil, &space.IncompatibleSpaceError{
			SourceID:     source.ID(),
			ReferenceID:  reference.ID(),
			SourceDim:    source.Dimension(),
			ReferenceDim: reference.Dimension(),
		}
	}
	shared, err := space.Intersect(source, reference)
	if err != nil {
		return nil, err
	}
	if len(shared) < o.minShared {
		return nil, &space.AlignmentError{
			SourceID:    source.ID(),
			ReferenceID: reference.ID(),
			Reason:      fmt.Sprintf("%d shared words, need at least %d", len(shared), o.minShared),
		}
	}

	dim := source.Dimension()
	s, err := rowMatrix(source, shared, o.unitNormalize)
	if err != nil {
		return nil, err
	}
	t, err := rowMatrix(reference, shared, o.unitNormalize)
	if err != nil {
		return nil, err
	}

	var m mat.Dense
	m.Mul(s.T(), t)
	norm := mat.Norm(&m, 2)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, &space.AlignmentError{
			SourceID:    source.ID(),
			ReferenceID: reference.ID(),
			Reason:      fmt.Sprintf("degenerate cross-covariance (norm %v)", norm),
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(&m, mat.SVDFull); !ok {
		return nil, &space.AlignmentError{
			SourceID:    source.ID(),
			ReferenceID: reference.ID(),
			Reason:      "singular value decomposition did not converge",
		}
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	r := mat.NewDense(dim, dim, nil)
	r.Mul(&u, v.T())

	var aligned, diff mat.Dense
	aligned.Mul(s, r)
	diff.Sub(&aligned, t)
	residual := math.Pow(mat.Norm(&diff, 2), 2)

	return &Transform{
		SourceID:    source.ID(),
		ReferenceID: reference.ID(),
		SharedWords: len(shared),
		Residual:    residual,
		r:           r,
	}, nil
}

// Align solves the transform from source onto reference and applies it to every word of
// source. The returned space is new; source is left untouched.
func Align(source, reference *space.Space, opts ...Option) (*space.Space, *Transform, error) {
	tr, err := Solve(source, reference, opts...)
	if err != nil {
		return nil, nil, err
	}
	aligned, err := tr.ApplySpace(source)
	if err != nil {
		return nil, nil, err
	}
	return aligned, tr, nil
}

func rowMatrix(sp *space.Space, words []string, unit bool) (*mat.Dense, error) {
	dim := sp.Dimension()
	data := make([]float64, 0, len(words)*dim)
	for _, w := range words {
		vec, err := sp.Vector(w)
		if err != nil {
			return nil, err
		}
		row := utils.Widen(vec)
		if unit {
			utils.NormalizeL2(row)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(words), dim, data), nil
}
