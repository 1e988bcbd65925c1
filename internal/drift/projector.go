// Package drift builds drift frames: a word's position in every period plus the words it
// was close to, projected into one shared 2D coordinate system.
package drift

import (
	"context"
	"fmt"

	"github.com/hyperjump/diachron/internal/align"
	"github.com/hyperjump/diachron/internal/projection"
	"github.com/hyperjump/diachron/internal/space"
	"github.com/hyperjump/diachron/internal/vector"
	"github.com/hyperjump/diachron/pkg/utils"
	"go.uber.org/zap"
)

// Projector turns a chronological sequence of spaces into a Frame.
type Projector struct {
	aligner *align.Aligner
	logger  *zap.Logger
}

// Option configures a Projector.
type Option func(*Projector)

// WithAligner sets the aligner used to bring every period onto the reference.
func WithAligner(a *align.Aligner) Option {
	return func(p *Projector) {
		if a != nil {
			p.aligner = a
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Projector) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProjector creates a projector with a default aligner.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.aligner == nil {
		p.aligner = align.NewAligner(align.WithLogger(p.logger))
	}
	return p
}

// BuildFrame projects baseword across spaces, which must be ordered oldest first. The last
// space is the reference; every other space is aligned directly onto it.
//
// A period whose vocabulary lacks baseword is skipped and listed in SkippedPeriods. It is an
// error only when no period has the word (ErrNoData) or fewer than two rows remain to project
// (ErrInsufficientData).
func (p *Projector) BuildFrame(ctx context.Context, baseword string, spaces []*space.Space, n int) (*Frame, error) {
	if len(spaces) == 0 {
		return nil, fmt.Errorf("drift of %q: no periods given: %w", baseword, space.ErrNoData)
	}
	if n <= 0 {
		return nil, vector.ErrInvalidN
	}

	aligned, err := p.aligner.AlignAll(ctx, spaces)
	if err != nil {
		return nil, err
	}
	ref := aligned[len(aligned)-1]

	union := space.NewOrderedSet()
	var present []*space.Space
	var skipped []string
	for _, sp := range aligned {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !sp.Has(baseword) {
			p.logger.Debug("word absent from period, skipping",
				zap.String("word", baseword), zap.String("period", sp.ID()))
			skipped = append(skipped, sp.ID())
			continue
		}
		neighbors, err := vector.NearestNeighbors(sp, baseword, n)
		if err != nil {
			return nil, fmt.Errorf("neighbors of %q in %q: %w", baseword, sp.ID(), err)
		}
		for _, nb := range neighbors {
			union.Add(nb.Word)
		}
		present = append(present, sp)
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("word %q occurs in none of %d periods: %w", baseword, len(spaces), space.ErrNoData)
	}

	contextWords := union.Filter(ref.Has).Items()
	rows := make([][]float64, 0, len(contextWords)+len(present))
	for _, w := range contextWords {
		vec, err := ref.Vector(w)
		if err != nil {
			return nil, err
		}
		rows = append(rows, utils.Widen(vec))
	}
	for _, sp := range present {
		vec, err := sp.Vector(baseword)
		if err != nil {
			return nil, err
		}
		rows = append(rows, utils.Widen(vec))
	}

	res, err := projection.FitTransform(rows)
	if err != nil {
		return nil, fmt.Errorf("project drift of %q: %w", baseword, err)
	}

	frame := &Frame{
		Baseword:          baseword,
		ReferenceID:       ref.ID(),
		Context:           make([]Point, len(contextWords)),
		Trajectory:        make([]Point, len(present)),
		SkippedPeriods:    skipped,
		ExplainedVariance: res.ExplainedVarianceRatio,
	}
	for i, w := range contextWords {
		c := res.Coordinates[i]
		frame.Context[i] = Point{Label: w, Period: ref.ID(), Kind: KindContext, X: c[0], Y: c[1]}
	}
	k := len(contextWords)
	for i, sp := range present {
		c := res.Coordinates[k+i]
		frame.Trajectory[i] = Point{
			Label:  TrajectoryLabel(baseword, sp.ID()),
			Period: sp.ID(),
			Kind:   KindTrajectory,
			X:      c[0],
			Y:      c[1],
		}
	}
	for i := 0; i+1 < len(present); i++ {
		frame.Edges = append(frame.Edges, Edge{From: i, To: i + 1})
	}

	p.logger.Debug("built drift frame",
		zap.String("word", baseword),
		zap.Int("context", len(frame.Context)),
		zap.Int("trajectory", len(frame.Trajectory)),
		zap.Strings("skipped", skipped))
	return frame, nil
}
