// Package comparison answers questions about words across period models: neighbors per
// period, similarity over time and context shift frames.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperjump/diachron/internal/align"
	"github.com/hyperjump/diachron/internal/drift"
	"github.com/hyperjump/diachron/internal/keyword"
	"github.com/hyperjump/diachron/internal/models"
	"github.com/hyperjump/diachron/internal/render"
	"github.com/hyperjump/diachron/internal/space"
	"github.com/hyperjump/diachron/internal/storage"
	"github.com/hyperjump/diachron/internal/vector"
	"go.uber.org/zap"
)

var (
	// ErrNoRenderer is returned by RenderContextShift when no renderer is configured.
	ErrNoRenderer = errors.New("no renderer configured")
	// ErrNoStore is returned by operations that persist frames when no store is configured.
	ErrNoStore = errors.New("no store configured")
)

// Engine runs queries against the period models of a Loader.
type Engine struct {
	loader    *storage.Loader
	store     storage.Store
	aligner   *align.Aligner
	projector *drift.Projector
	renderer  render.Renderer
	outputDir string
	format    string
	suggest   []keyword.SuggesterOption
	logger    *zap.Logger

	mu    sync.Mutex
	tools map[string]*spaceTools
}

// spaceTools caches the neighbor index and the suggester of one loaded space.
type spaceTools struct {
	sp        *space.Space
	index     *vector.Index
	suggester *keyword.Suggester
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore persists drift frames and, unless WithAligner is given, caches transforms.
func WithStore(s storage.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithAligner sets the aligner used for drift frames and AlignPeriod.
func WithAligner(a *align.Aligner) Option {
	return func(e *Engine) { e.aligner = a }
}

// WithRenderer enables RenderContextShift. Images are written to dir as
// "<baseword>.<format>".
func WithRenderer(r render.Renderer, dir, format string) Option {
	return func(e *Engine) {
		e.renderer = r
		e.outputDir = dir
		if format != "" {
			e.format = format
		}
	}
}

// WithSuggesterOptions configures the spelling suggestions attached to unknown words.
func WithSuggesterOptions(opts ...keyword.SuggesterOption) Option {
	return func(e *Engine) { e.suggest = append(e.suggest, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over loader.
func NewEngine(loader *storage.Loader, opts ...Option) *Engine {
	e := &Engine{
		loader: loader,
		format: "png",
		logger: zap.NewNop(),
		tools:  make(map[string]*spaceTools),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.aligner == nil {
		aopts := []align.AlignerOption{align.WithLogger(e.logger)}
		if e.store != nil {
			aopts = append(aopts, align.WithCache(e.store))
		}
		e.aligner = align.NewAligner(aopts...)
	}
	e.projector = drift.NewProjector(drift.WithAligner(e.aligner), drift.WithLogger(e.logger))
	return e
}

// Synonyms returns the n nearest neighbors of word in each period, each computed in the
// period's own unaligned space.
func (e *Engine) Synonyms(ctx context.Context, word string, periods []string, n int) ([]models.PeriodNeighbors, error) {
	if n <= 0 {
		return nil, vector.ErrInvalidN
	}
	spaces, err := e.loader.LoadAll(ctx, periods)
	if err != nil {
		return nil, err
	}
	out := make([]models.PeriodNeighbors, 0, len(spaces))
	for _, sp := range spaces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := e.toolsFor(sp)
		if !sp.Has(word) {
			return nil, e.wordNotFound(t, word)
		}
		nb, err := t.index.Neighbors(word, n)
		if err != nil {
			return nil, fmt.Errorf("neighbors of %q in %q: %w", word, sp.ID(), err)
		}
		out = append(out, models.PeriodNeighbors{Period: sp.ID(), Word: word, Neighbors: nb})
	}
	return out, nil
}

// SimilarityOverTime returns the cosine similarity of a and b in each period. Spaces are
// not aligned; the score compares two words inside one period.
func (e *Engine) SimilarityOverTime(ctx context.Context, a, b string, periods []string) ([]models.PeriodSimilarity, error) {
	spaces, err := e.loader.LoadAll(ctx, periods)
	if err != nil {
		return nil, err
	}
	out := make([]models.PeriodSimilarity, 0, len(spaces))
	for _, sp := range spaces {
		for _, w := range []string{a, b} {
			if !sp.Has(w) {
				return nil, e.wordNotFound(e.toolsFor(sp), w)
			}
		}
		score, err := vector.Similarity(sp, a, b)
		if err != nil {
			return nil, err
		}
		out = append(out, models.PeriodSimilarity{Period: sp.ID(), WordA: a, WordB: b, Score: score})
	}
	return out, nil
}

// ContextShift builds the drift frame of baseword over periods, oldest first. The last
// period is the reference.
func (e *Engine) ContextShift(ctx context.Context, baseword string, periods []string, n int) (*drift.Frame, error) {
	spaces, err := e.loader.LoadAll(ctx, periods)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	frame, err := e.projector.BuildFrame(ctx, baseword, spaces, n)
	if err != nil {
		return nil, err
	}
	e.logger.Info("context shift computed",
		zap.String("word", baseword),
		zap.Strings("periods", periods),
		zap.Int("context", len(frame.Context)),
		zap.Duration("elapsed", time.Since(start)))
	return frame, nil
}

// RecordContextShift computes a drift frame and saves it in the store.
func (e *Engine) RecordContextShift(ctx context.Context, baseword string, periods []string, n int) (*storage.StoredFrame, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	frame, err := e.ContextShift(ctx, baseword, periods, n)
	if err != nil {
		return nil, err
	}
	return e.store.SaveFrame(ctx, frame, periods, n)
}

// Frame returns a stored drift frame.
func (e *Engine) Frame(ctx context.Context, id string) (*storage.StoredFrame, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.GetFrame(ctx, id)
}

// Frames lists stored drift frames, newest first.
func (e *Engine) Frames(ctx context.Context, offset, limit int) ([]*storage.StoredFrame, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.ListFrames(ctx, offset, limit)
}

// RenderContextShift computes the drift frame of baseword and renders it to
// "<output dir>/<baseword>.<format>". It returns the written path.
func (e *Engine) RenderContextShift(ctx context.Context, baseword string, periods []string, n int) (string, *drift.Frame, error) {
	if e.renderer == nil {
		return "", nil, ErrNoRenderer
	}
	if err := render.CheckFormat(e.format); err != nil {
		return "", nil, err
	}
	frame, err := e.ContextShift(ctx, baseword, periods, n)
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(e.outputDir, render.FileName(baseword, e.format))
	if err := e.renderer.Render(frame, path); err != nil {
		return "", nil, fmt.Errorf("render %q: %w", baseword, err)
	}
	return path, frame, nil
}

// AlignPeriod aligns the source period onto the reference period and writes the aligned
// space to out in word2vec binary format.
func (e *Engine) AlignPeriod(ctx context.Context, source, reference string, out io.Writer) (*align.Transform, error) {
	spaces, err := e.loader.LoadAll(ctx, []string{source, reference})
	if err != nil {
		return nil, err
	}
	aligned, tr, err := e.aligner.Align(ctx, spaces[0], spaces[1])
	if err != nil {
		return nil, err
	}
	if err := storage.WriteWord2Vec(out, aligned); err != nil {
		return nil, fmt.Errorf("write aligned %q: %w", source, err)
	}
	return tr, nil
}

// Periods lists the available periods. Word count and dimension are filled in for
// periods currently held in memory.
func (e *Engine) Periods() ([]models.PeriodInfo, error) {
	periods, err := e.loader.Periods()
	if err != nil {
		return nil, err
	}
	out := make([]models.PeriodInfo, 0, len(periods))
	for _, p := range periods {
		info := models.PeriodInfo{Period: p}
		if path, err := e.loader.Resolve(p); err == nil {
			info.Path = path
		}
		if sp, ok := e.loader.Cache().Get(p); ok {
			info.Cached = true
			info.Words = sp.Len()
			info.Dimension = sp.Dimension()
		}
		out = append(out, info)
	}
	return out, nil
}

// Status summarizes the models directory, the in-memory cache and the store.
func (e *Engine) Status(ctx context.Context) (*models.Status, error) {
	st := &models.Status{
		ModelsDir:     e.loader.Root(),
		CachedPeriods: e.loader.Cache().Keys(),
		CheckedAt:     time.Now(),
	}
	periods, err := e.loader.Periods()
	if err != nil && !errors.Is(err, space.ErrNotFound) {
		return nil, err
	}
	st.Periods = periods
	usage, err := storage.DiskUsage(e.loader.Root())
	if err != nil {
		return nil, err
	}
	st.ModelFiles = usage.Models
	st.DiskUsageBytes = usage.Bytes
	if e.store != nil {
		if st.StoredFrames, err = e.store.CountFrames(ctx); err != nil {
			return nil, err
		}
		if st.CachedTransforms, err = e.store.CountTransforms(ctx); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Invalidate drops the cached model and lookup structures of period.
func (e *Engine) Invalidate(period string) {
	e.loader.Evict(period)
	e.mu.Lock()
	t, ok := e.tools[period]
	delete(e.tools, period)
	e.mu.Unlock()
	if ok {
		_ = t.suggester.Close()
	}
}

// Close releases the suggestion indexes.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for id, t := range e.tools {
		if err := t.suggester.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(e.tools, id)
	}
	return errors.Join(errs...)
}

func (e *Engine) toolsFor(sp *space.Space) *spaceTools {
	e.mu.Lock()
	t, ok := e.tools[sp.ID()]
	e.mu.Unlock()
	if ok && t.sp == sp {
		return t
	}

	fresh := &spaceTools{
		sp:        sp,
		index:     vector.NewIndex(sp),
		suggester: keyword.NewSuggester(keyword.NewVocabulary(sp.Words()), append([]keyword.SuggesterOption{keyword.WithLogger(e.logger)}, e.suggest...)...),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.tools[sp.ID()]; ok {
		if cur.sp == sp {
			_ = fresh.suggester.Close()
			return cur
		}
		_ = cur.suggester.Close()
	}
	e.tools[sp.ID()] = fresh
	return fresh
}

func (e *Engine) wordNotFound(t *spaceTools, word string) error {
	err := &space.WordNotFoundError{Word: word, SpaceID: t.sp.ID(), Suggestions: t.suggester.Words(word)}
	e.logger.Debug("word not in period", zap.String("word", word), zap.String("period", t.sp.ID()),
		zap.Strings("suggestions", err.Suggestions))
	return err
}
