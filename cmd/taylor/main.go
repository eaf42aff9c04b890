// Command taylor computes Taylor series approximations of a function of x,
// their truncation errors and Lagrange error bounds, and optionally writes
// plots and a full report.
//
// Usage:
//
//	taylor -f "sin(x)" --x0 0 -o 5 -e -1,0.5,1 -p -c 1,3 -s results
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/njchilds90/gotaylor/internal/config"
	"github.com/njchilds90/gotaylor/internal/logging"
	"github.com/njchilds90/gotaylor/report"
	"github.com/njchilds90/gotaylor/symbolic"
	"github.com/njchilds90/gotaylor/taylor"
)

const rule = "--------------------------------------------------------------------------------"

type options struct {
	function   string
	x0         float64
	order      int
	eval       []float64
	plot       bool
	plotRange  []float64
	compare    []int
	save       string
	parallel   bool
	configPath string
	verbose    bool
}

// cli holds what PersistentPreRunE prepares for the run.
type cli struct {
	opts   options
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:   "taylor",
		Short: "Taylor series approximations and truncation errors",
		Long: `taylor expands f(x) around x0 up to the given order, prints the
polynomial and its simplified form, and evaluates the exact value, the
approximation, the absolute error and the Lagrange error bound at the
requested points.

With -p it plots the function against every compared order and the
error curves. With -s and -e it also writes a full report.`,
		Example: `  taylor -f "exp(x)" --x0 0 -o 4 -e 0.5,1
  taylor -f "sin(x)" --x0 0 -o 7 -p -c 1,3,5 -r -3,3 -s results`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.opts.configPath)
			if err != nil {
				return err
			}
			if c.opts.verbose {
				cfg.Logging.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
			if err != nil {
				return err
			}
			c.cfg, c.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&c.opts.function, "function", "f", "", "function of x to approximate, e.g. \"exp(sin(x))\"")
	f.Float64Var(&c.opts.x0, "x0", 0, "expansion point")
	f.IntVarP(&c.opts.order, "order", "o", 0, fmt.Sprintf("approximation order (0-%d)", taylor.MaxOrder))
	f.Float64SliceVarP(&c.opts.eval, "eval", "e", nil, "points at which to evaluate the approximation")
	f.BoolVarP(&c.opts.plot, "plot", "p", false, "plot the approximations and their errors")
	f.Float64SliceVarP(&c.opts.plotRange, "range", "r", nil, "plot range as MIN,MAX (default x0-2,x0+2)")
	f.IntSliceVarP(&c.opts.compare, "compare", "c", nil, "additional orders to plot and report")
	f.StringVarP(&c.opts.save, "save", "s", "", "directory for plots and the report")
	f.BoolVar(&c.opts.parallel, "parallel", false, "compute the terms on a worker pool")
	cmd.PersistentFlags().StringVar(&c.opts.configPath, "config", "taylor.yaml", "configuration file")
	cmd.PersistentFlags().BoolVarP(&c.opts.verbose, "verbose", "v", false, "enable debug logging")
	for _, name := range []string{"function", "x0", "order"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (c *cli) validate() error {
	if err := taylor.ValidateOrder(c.opts.order); err != nil {
		return err
	}
	for _, o := range c.opts.compare {
		if err := taylor.ValidateOrder(o); err != nil {
			return fmt.Errorf("--compare: %w", err)
		}
	}
	if c.opts.plotRange != nil {
		if len(c.opts.plotRange) != 2 {
			return fmt.Errorf("%w: --range needs MIN,MAX", taylor.ErrInvalidParameter)
		}
		if !(c.opts.plotRange[0] < c.opts.plotRange[1]) {
			return fmt.Errorf("%w: --range minimum must be below maximum", taylor.ErrInvalidParameter)
		}
	}
	return nil
}

func (c *cli) run(ctx context.Context, out io.Writer) error {
	if err := c.validate(); err != nil {
		return err
	}
	o := c.opts
	p := func(format string, args ...interface{}) { fmt.Fprintf(out, format, args...) }

	p("\n%s\n%s\n%s\n\n", strings.Repeat("=", 80), strings.Repeat(" ", 22)+"TAYLOR SERIES APPROXIMATION TOOL", strings.Repeat("=", 80))
	if o.plot && o.plotRange == nil {
		p("Warning: no plot range given, using x0 ± 2.\n")
	}

	a := taylor.NewApproximator(append(c.cfg.ApproximatorOptions(), taylor.WithLogger(c.logger))...)
	if err := a.SetFunction(o.function); err != nil {
		return err
	}
	p("Function: f(x) = %s\n", o.function)
	p("Expansion point: x0 = %v\n", o.x0)
	p("Approximation order: %d\n", o.order)
	p("%s\n", rule)

	var (
		approx *taylor.Approximation
		err    error
	)
	if o.parallel {
		p("Using parallel computation...\n")
		approx, err = a.ParallelSeries(ctx, o.x0, o.order)
	} else {
		approx, err = a.Series(o.x0, o.order)
	}
	if err != nil {
		return err
	}
	if approx.Parallel {
		p("\nTaylor series approximation (computed in parallel):\n")
	} else {
		if o.parallel {
			p("Parallel computation failed, continued sequentially.\n")
		}
		p("\nTaylor series approximation:\n")
	}
	p("\n%s\n\n", approx)
	if simplified, ok := approx.Simplified(); ok {
		p("Simplified form:\n%s\n\n", simplified)
		c.logger.Debug("simplified", zap.String("latex", symbolic.LaTeX(simplified)))
	} else {
		p("Could not simplify: some derivatives have no finite value at x0\n\n")
	}

	if len(o.eval) > 0 {
		p("\nEvaluation at selected points:\n")
		if err := report.WriteEvaluationTable(out, a.EvaluateApproximation(approx, o.eval), true); err != nil {
			return err
		}
	}

	orders := report.NormalizeOrders(append([]int{o.order}, o.compare...)...)
	if o.plot {
		if err := c.plots(out, a, approx, orders); err != nil {
			return err
		}
	}

	if o.save != "" && len(o.eval) > 0 {
		p("\nGenerating full report in %s...\n", o.save)
		g := report.NewGenerator(
			report.WithLogger(c.logger),
			report.WithPlotOptions(c.cfg.PlotOptions()),
			report.WithParallel(o.parallel))
		path, err := g.Generate(ctx, a, o.x0, orders, o.eval, o.save)
		if err != nil {
			return err
		}
		p("Report written: %s\n", path)
	}

	p("\nTaylor series approximation completed successfully!\n")
	return nil
}

func (c *cli) plots(out io.Writer, a *taylor.Approximator, base *taylor.Approximation, orders []int) error {
	o := c.opts
	lo, hi := report.DefaultRange(o.x0)
	if o.plotRange != nil {
		lo, hi = o.plotRange[0], o.plotRange[1]
	}
	dir := o.save
	if dir == "" {
		dir = c.cfg.Output.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	approxs := make([]*taylor.Approximation, 0, len(orders))
	for _, order := range orders {
		if order == base.Order {
			approxs = append(approxs, base)
			continue
		}
		ap, err := a.Series(o.x0, order)
		if err != nil {
			return err
		}
		approxs = append(approxs, ap)
	}

	opts := c.cfg.PlotOptions()
	fmt.Fprintf(out, "\nGenerating approximation plot...\n")
	if err := report.PlotApproximations(approxs, lo, hi, filepath.Join(dir, report.ApproximationPlotFile), opts); err != nil {
		return err
	}
	fmt.Fprintf(out, "Generating error plot...\n")
	if err := report.PlotErrors(approxs, lo, hi, filepath.Join(dir, report.ErrorPlotFile), opts); err != nil {
		return err
	}
	fmt.Fprintf(out, "Plots saved to %s\n", dir)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
