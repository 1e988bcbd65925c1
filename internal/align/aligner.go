package align

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/hyperjump/diachron/internal/fingerprint"
	"github.com/hyperjump/diachron/internal/space"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TransformCache stores solved transforms by key. Keys are derived from the content
// fingerprints of both spaces and the solve options.
type TransformCache interface {
	GetTransform(ctx context.Context, key string) (*Transform, bool, error)
	PutTransform(ctx context.Context, key string, t *Transform) error
}

// Aligner aligns spaces onto a reference, optionally caching transforms.
type Aligner struct {
	solve    []Option
	variant  string
	workers  int
	cache    TransformCache
	logger   *zap.Logger
	observer func(sourceID, referenceID string, d time.Duration)
}

// AlignerOption configures an Aligner.
type AlignerOption func(*Aligner)

// WithSolveOptions sets the options passed to Solve.
func WithSolveOptions(opts ...Option) AlignerOption {
	return func(a *Aligner) { a.solve = append(a.solve, opts...) }
}

// WithWorkers bounds the number of concurrent alignments in AlignAll.
func WithWorkers(n int) AlignerOption {
	return func(a *Aligner) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithCache sets a transform cache.
func WithCache(c TransformCache) AlignerOption {
	return func(a *Aligner) { a.cache = c }
}

// WithLogger sets a logger for debug output (cache hits, solved transforms).
func WithLogger(l *zap.Logger) AlignerOption {
	return func(a *Aligner) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithObserver registers a callback invoked after every solved (not cached) alignment.
func WithObserver(fn func(sourceID, referenceID string, d time.Duration)) AlignerOption {
	return func(a *Aligner) { a.observer = fn }
}

// NewAligner creates an aligner. By default it solves on raw vectors, runs
// runtime.NumCPU() alignments at once and does not cache.
func NewAligner(opts ...AlignerOption) *Aligner {
	a := &Aligner{
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.variant = buildOptions(a.solve).variant()
	return a
}

// Align aligns source onto reference. A cached transform is reused when both spaces
// have the same content as when it was solved.
func (a *Aligner) Align(ctx context.Context, source, reference *space.Space) (*space.Space, *Transform, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var key string
	if a.cache != nil {
		key = fingerprint.Pair(fingerprint.Space(source), fingerprint.Space(reference), a.variant)
		tr, ok, err := a.cache.GetTransform(ctx, key)
		if err != nil {
			a.logger.Warn("transform cache lookup failed", zap.String("source", source.ID()),
				zap.String("reference", reference.ID()), zap.Error(err))
		} else if ok && (tr == nil || tr.Dimension() != source.Dimension()) {
			dim := 0
			if tr != nil {
				dim = tr.Dimension()
			}
			a.logger.Warn("ignoring cached transform with wrong dimension",
				zap.String("source", source.ID()), zap.String("reference", reference.ID()),
				zap.Int("cached_dimension", dim), zap.Int("dimension", source.Dimension()))
		} else if ok {
			a.logger.Debug("transform cache hit", zap.String("source", source.ID()), zap.String("reference", reference.ID()))
			aligned, err := tr.ApplySpace(source)
			if err != nil {
				return nil, nil, err
			}
			return aligned, tr, nil
		}
	}

	start := time.Now()
	tr, err := Solve(source, reference, a.solve...)
	if err != nil {
		return nil, nil, err
	}
	aligned, err := tr.ApplySpace(source)
	if err != nil {
		return nil, nil, err
	}
	elapsed := time.Since(start)
	a.logger.Debug("aligned space",
		zap.String("source", source.ID()),
		zap.String("reference", reference.ID()),
		zap.Int("shared_words", tr.SharedWords),
		zap.Float64("residual", tr.Residual),
		zap.Duration("elapsed", elapsed))
	if a.observer != nil {
		a.observer(source.ID(), reference.ID(), elapsed)
	}

	if a.cache != nil {
		if err := a.cache.PutTransform(ctx, key, tr); err != nil {
			a.logger.Warn("transform cache store failed", zap.String("source", source.ID()), zap.Error(err))
		}
	}
	return aligned, tr, nil
}

// AlignAll aligns every space onto the last one (the most recent period). Each space is
// aligned directly onto the reference, never through an intermediate period, so the
// alignments run concurrently. The result keeps the input order; the reference itself
// is returned unchanged.
func (a *Aligner) AlignAll(ctx context.Context, spaces []*space.Space) ([]*space.Space, error) {
	if len(spaces) == 0 {
		return nil, fmt.Errorf("no spaces to align: %w", space.ErrNoData)
	}
	ref := spaces[len(spaces)-1]
	out := make([]*space.Space, len(spaces))
	out[len(out)-1] = ref

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, sp := range spaces[:len(spaces)-1] {
		g.Go(func() error {
			aligned, _, err := a.Align(gctx, sp, ref)
			if err != nil {
				return fmt.Errorf("align %q onto %q: %w", sp.ID(), ref.ID(), err)
			}
			out[i] = aligned
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
