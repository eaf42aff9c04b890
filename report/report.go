// Package report renders Taylor approximations as text reports, evaluation
// tables and PNG plots.
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/njchilds90/gotaylor/taylor"
)

// File names written into the output directory.
const (
	ReportFile            = "taylor_report.txt"
	ApproximationPlotFile = "taylor_approximation.png"
	ErrorPlotFile         = "taylor_error.png"
)

// Generator writes full reports. The zero value is not usable; call
// NewGenerator.
type Generator struct {
	logger   *zap.Logger
	plot     PlotOptions
	parallel bool
}

type GeneratorOption func(*Generator)

func WithLogger(l *zap.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithPlotOptions(o PlotOptions) GeneratorOption {
	return func(g *Generator) { g.plot = o }
}

// WithParallel computes every order on the worker pool.
func WithParallel(on bool) GeneratorOption {
	return func(g *Generator) { g.parallel = on }
}

func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{logger: zap.NewNop(), plot: DefaultPlotOptions()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NormalizeOrders returns the distinct orders in ascending order.
func NormalizeOrders(orders ...int) []int {
	seen := make(map[int]struct{}, len(orders))
	out := make([]int, 0, len(orders))
	for _, o := range orders {
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	sort.Ints(out)
	return out
}

// DefaultRange is the plot range used when none is given.
func DefaultRange(x0 float64) (float64, float64) { return x0 - 2, x0 + 2 }

// pointsRange spans the evaluation points, or the default range around x0
// when they do not span an interval.
func pointsRange(x0 float64, points []float64) (float64, float64) {
	if len(points) == 0 {
		return DefaultRange(x0)
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo, hi = min(lo, p), max(hi, p)
	}
	if lo == hi {
		return lo - 1, hi + 1
	}
	return lo, hi
}

func (g *Generator) compute(ctx context.Context, a *taylor.Approximator, x0 float64, order int) (*taylor.Approximation, error) {
	if g.parallel {
		return a.ParallelSeries(ctx, x0, order)
	}
	return a.Series(x0, order)
}

// Generate writes the report for the given orders into dir together with
// both plots, and returns the report path. The plots span the evaluation
// points.
func (g *Generator) Generate(ctx context.Context, a *taylor.Approximator, x0 float64, orders []int, points []float64, dir string) (string, error) {
	fn, err := a.Function()
	if err != nil {
		return "", err
	}
	if len(orders) == 0 {
		return "", fmt.Errorf("%w: no orders requested", taylor.ErrInvalidOrder)
	}
	for _, o := range orders {
		if err := taylor.ValidateOrder(o); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	sw := &stickyWriter{w: &buf}
	title := "TAYLOR SERIES APPROXIMATION REPORT"
	sw.printf("%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	sw.printf("Function: f(x) = %s\n", fn.Source())
	sw.printf("Expansion point: x0 = %s\n\n", formatPoint(x0))

	approxs := make([]*taylor.Approximation, 0, len(orders))
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		approx, err := g.compute(ctx, a, x0, order)
		if err != nil {
			return "", err
		}
		approxs = append(approxs, approx)

		heading := fmt.Sprintf("ORDER %d APPROXIMATION", order)
		sw.printf("\n%s\n%s\n", heading, strings.Repeat("-", len(heading)))
		sw.printf("Computation time: %.4f seconds\n\n", approx.Elapsed.Seconds())
		sw.printf("Taylor polynomial:\n%s\n\n", approx)
		if simplified, ok := approx.Simplified(); ok {
			sw.printf("Simplified form:\n%s\n\n", simplified)
		} else {
			sw.printf("Could not simplify the expression.\n\n")
		}
		sw.printf("Evaluation at selected points:\n")
		if sw.err == nil {
			sw.err = WriteEvaluationTable(&buf, a.EvaluateApproximation(approx, points), false)
		}
		sw.printf("\n")
		g.logger.Debug("report section written", zap.Int("order", order), zap.Duration("elapsed", approx.Elapsed))
	}
	if sw.err != nil {
		return "", sw.err
	}

	lo, hi := pointsRange(x0, points)
	approxPath := filepath.Join(dir, ApproximationPlotFile)
	if err := PlotApproximations(approxs, lo, hi, approxPath, g.plot); err != nil {
		return "", err
	}
	errorPath := filepath.Join(dir, ErrorPlotFile)
	if err := PlotErrors(approxs, lo, hi, errorPath, g.plot); err != nil {
		return "", err
	}
	sw.printf("\nGRAPHS\n------\n")
	sw.printf("The following graphs were written to %s:\n", dir)
	sw.printf("- Approximation: %s\n", approxPath)
	sw.printf("- Error: %s\n", errorPath)

	reportPath := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(reportPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	g.logger.Info("report generated",
		zap.String("path", reportPath),
		zap.Ints("orders", orders),
		zap.Int("points", len(points)))
	return reportPath, nil
}
