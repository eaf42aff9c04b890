package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/njchilds90/gotaylor/taylor"
)

// errorFloor replaces zero errors on a logarithmic axis.
const errorFloor = 1e-17

// PlotOptions controls sampling and image size.
type PlotOptions struct {
	Points   int
	Width    vg.Length
	Height   vg.Length
	LogScale bool
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Points: 1000, Width: 12 * vg.Inch, Height: 8 * vg.Inch, LogScale: true}
}

func (o PlotOptions) grid(xmin, xmax float64) ([]float64, error) {
	if o.Points < 2 {
		return nil, fmt.Errorf("%w: need at least 2 plot points, got %d", taylor.ErrInvalidParameter, o.Points)
	}
	if !(xmin < xmax) || math.IsInf(xmin, 0) || math.IsInf(xmax, 0) {
		return nil, fmt.Errorf("%w: plot range [%v, %v] is empty", taylor.ErrInvalidParameter, xmin, xmax)
	}
	return floats.Span(make([]float64, o.Points), xmin, xmax), nil
}

// segments splits a sampled curve wherever the value is not finite.
func segments(xs, ys []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: xs[i], Y: y})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// addCurve draws every finite segment with one style and one legend entry.
// It reports false when nothing could be drawn.
func addCurve(p *plot.Plot, xs, ys []float64, style draw.LineStyle, label string) (bool, error) {
	segs := segments(xs, ys)
	for i, seg := range segs {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return false, fmt.Errorf("plot %s: %w", label, err)
		}
		line.LineStyle = style
		p.Add(line)
		if i == 0 {
			p.Legend.Add(label, line)
		}
	}
	return len(segs) > 0, nil
}

func sample(f func(float64) (float64, error), xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		v, err := f(x)
		if err != nil {
			v = math.NaN()
		}
		ys[i] = v
	}
	return ys
}

// finiteRange returns the smallest and largest finite values in ys.
func finiteRange(ys []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		lo, hi, ok = math.Min(lo, y), math.Max(hi, y), true
	}
	return lo, hi, ok
}

func orderStyle(i int) draw.LineStyle {
	return draw.LineStyle{Color: plotutil.Color(i), Width: vg.Points(1.5)}
}

func markExpansionPoint(p *plot.Plot, x0, ymin, ymax float64) error {
	line, err := plotter.NewLine(plotter.XYs{{X: x0, Y: ymin}, {X: x0, Y: ymax}})
	if err != nil {
		return err
	}
	line.Color = color.Gray{Y: 128}
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(line)
	return nil
}

func checkApproximations(approxs []*taylor.Approximation) error {
	if len(approxs) == 0 {
		return errors.New("no approximations to plot")
	}
	for _, a := range approxs[1:] {
		if a.Function != approxs[0].Function || a.X0 != approxs[0].X0 {
			return errors.New("approximations must share function and expansion point")
		}
	}
	return nil
}

// PlotApproximations draws the function and each approximation over
// [xmin, xmax] and saves the image to path. The image format follows the
// file extension.
func PlotApproximations(approxs []*taylor.Approximation, xmin, xmax float64, path string, opts PlotOptions) error {
	if err := checkApproximations(approxs); err != nil {
		return err
	}
	xs, err := opts.grid(xmin, xmax)
	if err != nil {
		return err
	}
	fn, x0 := approxs[0].Function, approxs[0].X0

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Taylor approximations of f(x) = %s around x0 = %s", fn.Source(), formatPoint(x0))
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	fys := sample(fn.Float, xs)
	if _, err := addCurve(p, xs, fys, draw.LineStyle{Color: color.Black, Width: vg.Points(2)}, "f(x) = "+fn.Source()); err != nil {
		return err
	}
	for i, a := range approxs {
		if _, err := addCurve(p, xs, sample(a.Float, xs), orderStyle(i), fmt.Sprintf("Order %d", a.Order)); err != nil {
			return err
		}
	}

	lo, hi, ok := finiteRange(fys)
	if ok {
		// High orders diverge quickly away from x0; keep the function in view.
		pad := 0.5 * (hi - lo)
		if pad == 0 {
			pad = 1
		}
		lo, hi = lo-pad, hi+pad
		p.Y.Min, p.Y.Max = lo, hi
	} else {
		lo, hi = p.Y.Min, p.Y.Max
		if lo > hi {
			lo, hi = -1, 1
		}
	}
	if err := markExpansionPoint(p, x0, lo, hi); err != nil {
		return err
	}
	if fx0, err := fn.Float(x0); err == nil {
		pt := plotter.XYs{{X: x0, Y: fx0}}
		sc, err := plotter.NewScatter(pt)
		if err != nil {
			return err
		}
		sc.GlyphStyle = draw.GlyphStyle{Color: color.RGBA{R: 220, A: 255}, Radius: vg.Points(4), Shape: draw.CircleGlyph{}}
		p.Add(sc)
		labels, err := plotter.NewLabels(plotter.XYLabels{XYs: pt, Labels: []string{"x0 = " + formatPoint(x0)}})
		if err != nil {
			return err
		}
		labels.Offset = vg.Point{X: vg.Points(8), Y: vg.Points(-16)}
		p.Add(labels)
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// PlotErrors draws |f(x) − P(x)| for each approximation over [xmin, xmax].
// On a logarithmic axis zero errors are raised to a small floor.
func PlotErrors(approxs []*taylor.Approximation, xmin, xmax float64, path string, opts PlotOptions) error {
	if err := checkApproximations(approxs); err != nil {
		return err
	}
	xs, err := opts.grid(xmin, xmax)
	if err != nil {
		return err
	}
	fn, x0 := approxs[0].Function, approxs[0].X0

	p := plot.New()
	p.Title.Text = "Truncation error of Taylor approximations of f(x) = " + fn.Source()
	p.X.Label.Text = "x"
	p.Y.Label.Text = "Absolute error"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	if opts.LogScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	fys := sample(fn.Float, xs)
	drawn := 0
	for i, a := range approxs {
		pys := sample(a.Float, xs)
		errs := make([]float64, len(xs))
		for k := range xs {
			e := math.Abs(fys[k] - pys[k])
			if opts.LogScale && e < errorFloor {
				e = errorFloor
			}
			errs[k] = e
		}
		ok, err := addCurve(p, xs, errs, orderStyle(i), fmt.Sprintf("Order %d", a.Order))
		if err != nil {
			return err
		}
		if ok {
			drawn++
		}
	}
	switch {
	case drawn == 0:
		p.Y.Min, p.Y.Max = errorFloor, 1
	case p.Y.Min >= p.Y.Max:
		// An exact approximation leaves a flat line at the floor.
		p.Y.Max = p.Y.Min * 10
	}
	if err := markExpansionPoint(p, x0, p.Y.Min, p.Y.Max); err != nil {
		return err
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
