package taylor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/njchilds90/gotaylor/symbolic"
)

// DefaultSamples is the number of points used to estimate the Lagrange bound.
const DefaultSamples = 100

// Approximator computes Taylor approximations of its current function. It
// owns one DerivativeCache per function and replaces it whenever the
// function changes. All methods are safe for concurrent use.
type Approximator struct {
	logger  *zap.Logger
	workers int
	samples int

	mu    sync.RWMutex
	cache *DerivativeCache
}

// Option configures an Approximator.
type Option func(*Approximator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(a *Approximator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithWorkers sets the size of the parallel worker pool. Values below one
// select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(a *Approximator) { a.workers = n }
}

// WithSamples sets how many points the Lagrange bound samples.
func WithSamples(n int) Option {
	return func(a *Approximator) {
		if n >= 2 {
			a.samples = n
		}
	}
}

func NewApproximator(opts ...Option) *Approximator {
	a := &Approximator{
		logger:  zap.NewNop(),
		workers: runtime.NumCPU(),
		samples: DefaultSamples,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers < 1 {
		a.workers = runtime.NumCPU()
	}
	return a
}

// SetFunction parses src and makes it the current function with a fresh
// derivative cache. On error the previous function stays in place.
func (a *Approximator) SetFunction(src string) error {
	fn, err := ParseFunction(src)
	if err != nil {
		return err
	}
	cache := NewDerivativeCache(fn, a.logger)
	a.mu.Lock()
	a.cache = cache
	a.mu.Unlock()
	a.logger.Info("function set", zap.String("function", fn.Source()), zap.String("parsed", fn.String()))
	return nil
}

// Cache returns the derivative cache of the current function.
func (a *Approximator) Cache() (*DerivativeCache, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.cache == nil {
		return nil, fmt.Errorf("%w: no function has been set", ErrInvalidFunction)
	}
	return a.cache, nil
}

// Function returns the current function.
func (a *Approximator) Function() (*Function, error) {
	c, err := a.Cache()
	if err != nil {
		return nil, err
	}
	return c.Function(), nil
}

// Term returns the Taylor term of the given order around x0.
func (a *Approximator) Term(order int, x0 float64) (Term, error) {
	if err := ValidateOrder(order); err != nil {
		return Term{}, err
	}
	point, err := expansionPoint(x0)
	if err != nil {
		return Term{}, err
	}
	c, err := a.Cache()
	if err != nil {
		return Term{}, err
	}
	d, err := c.Derivative(order)
	if err != nil {
		return Term{}, err
	}
	return buildTerm(d, point, order)
}

// Series sums the terms of orders 0..order around x0. Derivatives come from
// the cache; the terms and their sum are rebuilt on every call.
func (a *Approximator) Series(x0 float64, order int) (*Approximation, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}
	point, err := expansionPoint(x0)
	if err != nil {
		return nil, err
	}
	c, err := a.Cache()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	terms := make([]Term, order+1)
	for n := range terms {
		d, err := c.Derivative(n)
		if err != nil {
			return nil, err
		}
		if terms[n], err = buildTerm(d, point, n); err != nil {
			return nil, err
		}
	}
	approx := newApproximation(c.Function(), x0, point, terms, false, time.Since(start))
	a.logger.Debug("series computed",
		zap.String("function", c.Function().Source()),
		zap.Float64("x0", x0),
		zap.Int("order", order),
		zap.Duration("elapsed", approx.Elapsed))
	return approx, nil
}

// ParallelSeries computes the series on the worker pool and falls back to
// Series when the pool fails. Validation errors and a cancelled or expired
// ctx are returned without a fallback.
func (a *Approximator) ParallelSeries(ctx context.Context, x0 float64, order int) (*Approximation, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}
	point, err := expansionPoint(x0)
	if err != nil {
		return nil, err
	}
	fn, err := a.Function()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	terms, err := ComputeTermsParallel(ctx, fn.Source(), x0, order, a.workers)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		a.logger.Warn("parallel computation failed, using sequential path",
			zap.Int("order", order), zap.Error(err))
		return a.Series(x0, order)
	}
	approx := newApproximation(fn, x0, point, terms, true, time.Since(start))
	a.logger.Debug("parallel series computed",
		zap.Int("order", order),
		zap.Int("workers", a.workers),
		zap.Duration("elapsed", approx.Elapsed))
	return approx, nil
}

// ExactError returns |f(x) − P(x)| for the series of the given order.
func (a *Approximator) ExactError(x0 float64, order int, x float64) (float64, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: evaluation point %v is not finite", ErrInvalidParameter, x)
	}
	approx, err := a.Series(x0, order)
	if err != nil {
		return 0, err
	}
	exact, err := approx.Function.Float(x)
	if err != nil {
		return 0, err
	}
	p, err := approx.Float(x)
	if err != nil {
		return 0, err
	}
	return math.Abs(exact - p), nil
}

// LagrangeBound estimates max|f⁽ᴺ⁺¹⁾|·|x−x0|ᴺ⁺¹/(N+1)! by sampling the
// derivative at evenly spaced points between x0 and x. The maximum over a
// finite sample can miss the true supremum, so the result is an estimate
// rather than a guaranteed bound.
func (a *Approximator) LagrangeBound(x0 float64, order int, x float64) (float64, error) {
	if err := ValidateOrder(order); err != nil {
		return 0, err
	}
	if math.IsNaN(x0) || math.IsInf(x0, 0) || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: points must be finite", ErrInvalidParameter)
	}
	c, err := a.Cache()
	if err != nil {
		return 0, err
	}
	d, err := c.Derivative(order + 1)
	if err != nil {
		return 0, err
	}
	return lagrangeBound(d, x0, x, order, a.samples)
}

func lagrangeBound(deriv symbolic.Expr, x0, x float64, order, samples int) (float64, error) {
	if x == x0 {
		return 0, nil
	}
	f := symbolic.Lambdify(deriv, Variable)
	grid := floats.Span(make([]float64, samples), math.Min(x0, x), math.Max(x0, x))
	maxAbs, found := 0.0, false
	for _, t := range grid {
		v, err := f(t)
		if err != nil {
			continue
		}
		found = true
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	if !found {
		return 0, fmt.Errorf("%w: derivative of order %d has no finite value between %g and %g",
			ErrEvaluation, order+1, x0, x)
	}
	if maxAbs == 0 {
		return 0, nil
	}
	n1 := float64(order + 1)
	logFact, _ := math.Lgamma(n1 + 1)
	return math.Exp(math.Log(maxAbs) + n1*math.Log(math.Abs(x-x0)) - logFact), nil
}

// Evaluation is one row of an evaluation table.
type Evaluation struct {
	X      float64
	Exact  float64
	Approx float64
	Error  float64
	Bound  float64
	// Err is set when the point could not be evaluated; the numeric fields
	// are NaN then.
	Err error
	// BoundErr is set when the Lagrange bound is unavailable.
	BoundErr error
}

// Evaluate computes the series once and evaluates it at every point.
func (a *Approximator) Evaluate(x0 float64, order int, points []float64) ([]Evaluation, error) {
	approx, err := a.Series(x0, order)
	if err != nil {
		return nil, err
	}
	return a.EvaluateApproximation(approx, points), nil
}

// EvaluateApproximation compares approx with its function at every point.
// A failure at one point is recorded in its row and the other rows are
// still computed.
func (a *Approximator) EvaluateApproximation(approx *Approximation, points []float64) []Evaluation {
	var deriv symbolic.Expr
	var derivErr error
	c := NewDerivativeCache(approx.Function, a.logger)
	if cur, err := a.Cache(); err == nil && cur.Function() == approx.Function {
		c = cur
	}
	deriv, derivErr = c.Derivative(approx.Order + 1)

	rows := make([]Evaluation, len(points))
	for i, x := range points {
		row := Evaluation{X: x, Exact: math.NaN(), Approx: math.NaN(), Error: math.NaN(), Bound: math.NaN()}
		exact, err := approx.Function.Float(x)
		if err == nil {
			row.Exact = exact
		}
		p, perr := approx.Float(x)
		if perr == nil {
			row.Approx = p
		}
		switch {
		case err != nil:
			row.Err = err
		case perr != nil:
			row.Err = perr
		default:
			row.Error = math.Abs(exact - p)
		}

		if derivErr != nil {
			row.BoundErr = derivErr
		} else if b, err := lagrangeBound(deriv, approx.X0, x, approx.Order, a.samples); err != nil {
			row.BoundErr = err
		} else {
			row.Bound = b
		}
		rows[i] = row
	}
	return rows
}
