package projection

import (
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/diachron/internal/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitTransform_LineAlongFirstAxis(t *testing.T) {
	rows := [][]float64{
		{0, 0, 5},
		{1, 1, 5},
		{2, 2, 5},
		{3, 3, 5},
	}
	res, err := FitTransform(rows)
	require.NoError(t, err)
	require.Len(t, res.Coordinates, 4)

	step := math.Sqrt2
	for i, c := range res.Coordinates {
		assert.InDelta(t, (float64(i)-1.5)*step, c[0], 1e-9, "row %d x", i)
		assert.InDelta(t, 0, c[1], 1e-9, "row %d y", i)
	}
	assert.InDelta(t, 1.0, res.ExplainedVarianceRatio[0], 1e-9)
	assert.InDeltaSlice(t, []float64{1.5, 1.5, 5}, res.Mean, 1e-9)
}

func TestFitTransform_CenteredAndOrdered(t *testing.T) {
	rows := [][]float64{
		{10, 0},
		{-10, 0},
		{0, 1},
		{0, -1},
	}
	res, err := FitTransform(rows)
	require.NoError(t, err)

	var sx, sy float64
	for _, c := range res.Coordinates {
		sx += c[0]
		sy += c[1]
	}
	assert.InDelta(t, 0, sx, 1e-9)
	assert.InDelta(t, 0, sy, 1e-9)
	assert.InDelta(t, 10, math.Abs(res.Coordinates[0][0]), 1e-9)
	assert.InDelta(t, 1, math.Abs(res.Coordinates[2][1]), 1e-9)
	assert.Greater(t, res.ExplainedVarianceRatio[0], res.ExplainedVarianceRatio[1])
}

func TestFitTransform_DeterministicSigns(t *testing.T) {
	rows := [][]float64{{1, 2, 3}, {4, 0, 1}, {2, 2, 2}, {0, 5, 1}}
	a, err := FitTransform(rows)
	require.NoError(t, err)
	b, err := FitTransform(rows)
	require.NoError(t, err)
	assert.Equal(t, a.Coordinates, b.Coordinates)

	for c := 0; c < Components; c++ {
		best, idx := -1.0, 0
		for i := 0; i < 3; i++ {
			if v := math.Abs(a.Loadings.At(i, c)); v > best {
				best, idx = v, i
			}
		}
		assert.Positive(t, a.Loadings.At(idx, c), "component %d", c)
	}
}

func TestFitTransform_TwoRowsHighDimension(t *testing.T) {
	res, err := FitTransform([][]float64{{1, 0, 0, 0}, {0, 1, 0, 0}})
	require.NoError(t, err)
	assert.InDelta(t, -res.Coordinates[0][0], res.Coordinates[1][0], 1e-9)
	assert.InDelta(t, 0, res.Coordinates[0][1], 1e-9)
}

func TestFitTransform_Errors(t *testing.T) {
	_, err := FitTransform(nil)
	assert.True(t, errors.Is(err, space.ErrInsufficientData))

	_, err = FitTransform([][]float64{{1, 2}})
	assert.True(t, errors.Is(err, space.ErrInsufficientData))

	_, err = FitTransform([][]float64{{1, 2}, {1}})
	assert.Error(t, err)

	_, err = FitTransform([][]float64{{1, math.NaN()}, {1, 2}})
	assert.Error(t, err)
}
