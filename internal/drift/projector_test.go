package drift

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/diachron/internal/align"
	"github.com/hyperjump/diachron/internal/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mustSpace(t *testing.T, id string, words []string, vecs [][]float32) *space.Space {
	t.Helper()
	sp, err := space.FromWords(id, words, vecs)
	require.NoError(t, err)
	return sp
}

// periods returns three 3-dimensional spaces. "mouse" is missing from the middle period.
func periods(t *testing.T) []*space.Space {
	t.Helper()
	old := mustSpace(t, "1970-1979",
		[]string{"mouse", "cat", "cheese", "trap", "house"},
		[][]float32{{1, 0.1, 0}, {0.9, 0.2, 0.1}, {0.8, 0, 0.3}, {0.7, 0.3, 0}, {0, 1, 0}})
	mid := mustSpace(t, "1980-1989",
		[]string{"cat", "cheese", "trap", "house", "keyboard"},
		[][]float32{{0.9, 0.2, 0.1}, {0.8, 0, 0.3}, {0.7, 0.3, 0}, {0, 1, 0}, {0, 0.2, 1}})
	recent := mustSpace(t, "1990-1999",
		[]string{"mouse", "keyboard", "cat", "cheese", "trap", "house", "screen"},
		[][]float32{{0.1, 0.2, 1}, {0, 0.3, 0.9}, {0.9, 0.2, 0.1}, {0.8, 0, 0.3}, {0.7, 0.3, 0}, {0, 1, 0}, {0.1, 0, 0.8}})
	return []*space.Space{old, mid, recent}
}

func TestBuildFrame_SkipsPeriodWithoutWord(t *testing.T) {
	frame, err := NewProjector(WithLogger(zap.NewNop())).BuildFrame(context.Background(), "mouse", periods(t), 2)
	require.NoError(t, err)

	assert.Equal(t, "mouse", frame.Baseword)
	assert.Equal(t, "1990-1999", frame.ReferenceID)
	assert.Equal(t, []string{"1970-1979", "1990-1999"}, frame.Periods())
	assert.Equal(t, []string{"1980-1989"}, frame.SkippedPeriods)
	require.Len(t, frame.Trajectory, 2)
	assert.Equal(t, "mouse-1970-1979", frame.Trajectory[0].Label)
	assert.Equal(t, "mouse-1990-1999", frame.Trajectory[1].Label)
	for _, p := range frame.Trajectory {
		assert.Equal(t, KindTrajectory, p.Kind)
	}
	assert.Equal(t, []Edge{{From: 0, To: 1}}, frame.Edges)
}

func TestBuildFrame_ContextFromUnionInFirstSeenOrder(t *testing.T) {
	frame, err := NewProjector().BuildFrame(context.Background(), "mouse", periods(t), 2)
	require.NoError(t, err)

	var labels []string
	for _, p := range frame.Context {
		assert.Equal(t, KindContext, p.Kind)
		assert.Equal(t, "1990-1999", p.Period)
		labels = append(labels, p.Label)
	}
	// 1970s neighbors first (cat, trap), then the 1990s ones (keyboard, screen).
	assert.Equal(t, []string{"cat", "trap", "keyboard", "screen"}, labels)
}

func TestBuildFrame_FiltersContextByReferenceVocabulary(t *testing.T) {
	old := mustSpace(t, "old", []string{"w", "gone", "x"}, [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}})
	ref := mustSpace(t, "ref", []string{"w", "x", "y"}, [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}})

	frame, err := NewProjector().BuildFrame(context.Background(), "w", []*space.Space{old, ref}, 1)
	require.NoError(t, err)
	for _, p := range frame.Context {
		assert.NotEqual(t, "gone", p.Label)
	}
}

func TestBuildFrame_Deterministic(t *testing.T) {
	sp := periods(t)
	p := NewProjector(WithAligner(align.NewAligner(align.WithWorkers(1))))

	first, err := p.BuildFrame(context.Background(), "mouse", sp, 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.BuildFrame(context.Background(), "mouse", sp, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildFrame_EdgesConnectEveryConsecutivePair(t *testing.T) {
	words := []string{"a", "b", "c"}
	var sp []*space.Space
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		sp = append(sp, mustSpace(t, id, words, [][]float32{{1, 0}, {0, 1}, {1, 1}}))
	}
	frame, err := NewProjector().BuildFrame(context.Background(), "a", sp, 1)
	require.NoError(t, err)
	assert.Equal(t, []Edge{{0, 1}, {1, 2}, {2, 3}}, frame.Edges)
}

func TestBuildFrame_NoData(t *testing.T) {
	_, err := NewProjector().BuildFrame(context.Background(), "unicorn", periods(t), 2)
	assert.True(t, errors.Is(err, space.ErrNoData))

	_, err = NewProjector().BuildFrame(context.Background(), "mouse", nil, 2)
	assert.True(t, errors.Is(err, space.ErrNoData))
}

func TestBuildFrame_InsufficientData(t *testing.T) {
	// Single period, and the only other word has a zero vector so it never ranks.
	only := mustSpace(t, "2000-2009", []string{"lonely", "void"}, [][]float32{{1, 0}, {0, 0}})
	_, err := NewProjector().BuildFrame(context.Background(), "lonely", []*space.Space{only}, 3)
	assert.True(t, errors.Is(err, space.ErrInsufficientData))
}

func TestBuildFrame_AlignmentErrorsPropagate(t *testing.T) {
	a := mustSpace(t, "a", []string{"x"}, [][]float32{{1, 0}})
	b := mustSpace(t, "b", []string{"y"}, [][]float32{{1, 0}})
	_, err := NewProjector().BuildFrame(context.Background(), "x", []*space.Space{a, b}, 1)
	assert.True(t, errors.Is(err, space.ErrAlignment))
}
