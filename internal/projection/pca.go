// Package projection reduces high-dimensional word vectors to 2D for drift plots.
//
// # Principal Component Analysis
//
// PCA finds the directions along which a point set varies most. For a column-centered
// data matrix X the singular value decomposition X = U·Σ·Vᵗ gives those directions as
// the columns of V, ordered by singular value; projecting onto the first two columns
// yields the 2D coordinates:
//
//	coords = X · V[:, 0:2]
//
// The sign of a singular vector is arbitrary, so every component is flipped to make its
// largest-magnitude loading positive. That keeps the output identical across runs and
// platforms for the same input.
package projection

import (
	"fmt"
	"math"

	"github.com/hyperjump/diachron/internal/space"
	"github.com/hyperjump/diachron/pkg/utils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Components is the number of output dimensions.
const Components = 2

// Result holds a fitted 2-component PCA and the projection of the rows it was fitted on.
type Result struct {
	// Coordinates has one entry per input row.
	Coordinates [][Components]float64
	// ExplainedVarianceRatio is the share of total variance captured by each component.
	ExplainedVarianceRatio [Components]float64
	// Mean is the column mean subtracted before projection.
	Mean []float64
	// Loadings is the dim×2 matrix of principal directions.
	Loadings *mat.Dense
}

// FitTransform fits a 2-component PCA on rows and projects every row through it.
// All rows must have the same length. At least two rows are required.
func FitTransform(rows [][]float64) (*Result, error) {
	n := len(rows)
	if n < 2 {
		return nil, fmt.Errorf("pca needs at least 2 rows, got %d: %w", n, space.ErrInsufficientData)
	}
	dim := len(rows[0])
	if dim == 0 {
		return nil, fmt.Errorf("pca: rows are empty: %w", space.ErrInsufficientData)
	}
	data := make([]float64, 0, n*dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("pca: row %d has length %d, expected %d", i, len(row), dim)
		}
		if !utils.IsFinite(row) {
			return nil, fmt.Errorf("pca: row %d contains a non-finite value", i)
		}
		data = append(data, row...)
	}
	x := mat.NewDense(n, dim, data)

	mean := make([]float64, dim)
	for j := 0; j < dim; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			x.Set(i, j, x.At(i, j)-mean[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, fmt.Errorf("pca: singular value decomposition did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	values := svd.Values(nil)

	_, available := v.Dims()
	k := min(Components, available)
	loadings := mat.NewDense(dim, Components, nil)
	for c := 0; c < k; c++ {
		col := mat.Col(nil, c, &v)
		if largestMagnitudeNegative(col) {
			for i := range col {
				col[i] = -col[i]
			}
		}
		loadings.SetCol(c, col)
	}

	var projected mat.Dense
	projected.Mul(x, loadings)

	res := &Result{
		Coordinates: make([][Components]float64, n),
		Mean:        mean,
		Loadings:    loadings,
	}
	for i := 0; i < n; i++ {
		res.Coordinates[i] = [Components]float64{projected.At(i, 0), projected.At(i, 1)}
	}
	var total float64
	for _, s := range values {
		total += s * s
	}
	if total > 0 {
		for c := 0; c < k; c++ {
			res.ExplainedVarianceRatio[c] = values[c] * values[c] / total
		}
	}
	return res, nil
}

func largestMagnitudeNegative(col []float64) bool {
	best, idx := -1.0, 0
	for i, v := range col {
		if a := math.Abs(v); a > best {
			best, idx = a, i
		}
	}
	return col[idx] < 0
}
