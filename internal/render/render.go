// Package render draws drift frames to image files.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/diachron/internal/drift"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ErrUnsupportedFormat is returned for an output extension the renderer cannot write.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Renderer writes a frame to path. The format follows the file extension.
type Renderer interface {
	Render(frame *drift.Frame, path string) error
}

var formats = map[string]bool{"png": true, "svg": true, "pdf": true, "jpg": true, "jpeg": true}

// FileName returns "<baseword>.<format>".
func FileName(baseword, format string) string {
	return baseword + "." + strings.TrimPrefix(strings.ToLower(format), ".")
}

// CheckFormat validates an output format name such as "png".
func CheckFormat(format string) error {
	f := strings.TrimPrefix(strings.ToLower(format), ".")
	if !formats[f] {
		return fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	return nil
}

var (
	contextColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	trajectoryColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	edgeColor       = color.Gray{Y: 140}
)

// PlotRenderer renders frames with gonum/plot.
type PlotRenderer struct {
	width  vg.Length
	height vg.Length
	logger *zap.Logger
}

// Option configures a PlotRenderer.
type Option func(*PlotRenderer)

// WithSize sets the image size in centimeters.
func WithSize(widthCm, heightCm float64) Option {
	return func(r *PlotRenderer) {
		if widthCm > 0 && heightCm > 0 {
			r.width = vg.Length(widthCm) * vg.Centimeter
			r.height = vg.Length(heightCm) * vg.Centimeter
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *PlotRenderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewPlotRenderer creates a renderer producing 20x15 cm images by default.
func NewPlotRenderer(opts ...Option) *PlotRenderer {
	r := &PlotRenderer{
		width:  20 * vg.Centimeter,
		height: 15 * vg.Centimeter,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws context words as circles, the baseword trajectory as squares and an arrow
// between consecutive trajectory points, then saves the plot to path.
func (r *PlotRenderer) Render(frame *drift.Frame, path string) error {
	if frame == nil || len(frame.Context)+len(frame.Trajectory) == 0 {
		return errors.New("render: empty frame")
	}
	if err := CheckFormat(filepath.Ext(path)); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Semantic drift of %q", frame.Baseword)
	p.X.Label.Text = fmt.Sprintf("PC1 (%.1f%%)", 100*frame.ExplainedVariance[0])
	p.Y.Label.Text = fmt.Sprintf("PC2 (%.1f%%)", 100*frame.ExplainedVariance[1])

	if len(frame.Context) > 0 {
		if err := addPoints(p, frame.Context, draw.CircleGlyph{}, contextColor, "context ("+frame.ReferenceID+")"); err != nil {
			return err
		}
	}

	if len(frame.Edges) > 0 {
		a := &arrows{
			style: draw.LineStyle{Color: edgeColor, Width: vg.Points(1)},
			head:  vg.Points(6),
		}
		for _, e := range frame.Edges {
			from, to := frame.Trajectory[e.From], frame.Trajectory[e.To]
			a.segments = append(a.segments, [2]plotter.XY{{X: from.X, Y: from.Y}, {X: to.X, Y: to.Y}})
		}
		p.Add(a)
	}

	if len(frame.Trajectory) > 0 {
		if err := addPoints(p, frame.Trajectory, draw.SquareGlyph{}, trajectoryColor, frame.Baseword); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := p.Save(r.width, r.height, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	r.logger.Debug("rendered drift frame", zap.String("word", frame.Baseword), zap.String("path", path))
	return nil
}

func addPoints(p *plot.Plot, points []drift.Point, shape draw.GlyphDrawer, c color.Color, legend string) error {
	xys := make(plotter.XYs, len(points))
	labels := make([]string, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
		labels[i] = pt.Label
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("scatter: %w", err)
	}
	sc.GlyphStyle.Shape = shape
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(3)

	lb, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return fmt.Errorf("labels: %w", err)
	}
	lb.Offset = vg.Point{X: vg.Points(-4), Y: vg.Points(5)}

	p.Add(sc, lb)
	p.Legend.Add(legend, sc)
	return nil
}

// arrows draws straight segments with an open arrow head at the end point.
type arrows struct {
	segments [][2]plotter.XY
	style    draw.LineStyle
	head     vg.Length
}

func (a *arrows) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)
	for _, s := range a.segments {
		x0, y0 := trX(s[0].X), trY(s[0].Y)
		x1, y1 := trX(s[1].X), trY(s[1].Y)
		c.StrokeLine2(a.style, x0, y0, x1, y1)

		dx, dy := float64(x1-x0), float64(y1-y0)
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		ux, uy := dx/length, dy/length
		h := float64(a.head)
		for _, angle := range []float64{math.Pi / 7, -math.Pi / 7} {
			sin, cos := math.Sincos(angle)
			wx := -(ux*cos - uy*sin) * h
			wy := -(ux*sin + uy*cos) * h
			c.StrokeLine2(a.style, x1, y1, x1+vg.Length(wx), y1+vg.Length(wy))
		}
	}
}

// DataRange keeps every segment end inside the axes.
func (a *arrows) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, s := range a.segments {
		for _, pt := range s {
			xmin, xmax = math.Min(xmin, pt.X), math.Max(xmax, pt.X)
			ymin, ymax = math.Min(ymin, pt.Y), math.Max(ymax, pt.Y)
		}
	}
	return xmin, xmax, ymin, ymax
}
