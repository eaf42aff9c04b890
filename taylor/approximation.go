package taylor

import (
	"fmt"
	"math"
	"time"

	"github.com/njchilds90/gotaylor/symbolic"
)

// Term is one summand f⁽ⁿ⁾(x0)·(x−x0)ⁿ/n! of a Taylor series.
type Term struct {
	Order int
	// Coefficient is f⁽ⁿ⁾(x0)/n!. It is a *symbolic.Num unless the
	// derivative has no finite value at x0.
	Coefficient symbolic.Expr
	Expr        symbolic.Expr
}

// buildTerm evaluates deriv at x0 and scales it into the order-n term.
func buildTerm(deriv symbolic.Expr, x0 *symbolic.Num, n int) (t Term, err error) {
	defer recoverAs(ErrEvaluation, fmt.Sprintf("term of order %d", n), &err)

	atPoint, _ := symbolic.Fold(deriv, Variable, x0)
	coeff := symbolic.MulOf(atPoint, symbolic.PowOf(symbolic.Factorial(n), symbolic.N(-1)))
	shift := symbolic.AddOf(symbolic.S(Variable), symbolic.MulOf(symbolic.N(-1), x0))
	return Term{
		Order:       n,
		Coefficient: coeff,
		Expr:        symbolic.MulOf(coeff, symbolic.PowOf(shift, symbolic.N(int64(n)))),
	}, nil
}

// Approximation is a truncated Taylor series of one Function.
type Approximation struct {
	Function *Function
	X0       float64
	Order    int
	Terms    []Term
	// Polynomial is the sum of the term expressions.
	Polynomial symbolic.Expr
	// Parallel is true when the terms came from the worker pool.
	Parallel bool
	Elapsed  time.Duration

	x0 *symbolic.Num
}

func newApproximation(fn *Function, x0 float64, point *symbolic.Num, terms []Term, parallel bool, elapsed time.Duration) *Approximation {
	exprs := make([]symbolic.Expr, len(terms))
	for i, t := range terms {
		exprs[i] = t.Expr
	}
	return &Approximation{
		Function:   fn,
		X0:         x0,
		Order:      len(terms) - 1,
		Terms:      terms,
		Polynomial: symbolic.AddOf(exprs...),
		Parallel:   parallel,
		Elapsed:    elapsed,
		x0:         point,
	}
}

func (a *Approximation) String() string { return a.Polynomial.String() }

// Simplified expands the series into a polynomial in x with ascending
// powers. It reports false when some coefficient is not a number, in which
// case there is no simplified form to show.
func (a *Approximation) Simplified() (symbolic.Expr, bool) {
	coeffs := make([]*symbolic.Num, len(a.Terms))
	for i, t := range a.Terms {
		n, ok := t.Coefficient.(*symbolic.Num)
		if !ok {
			return nil, false
		}
		coeffs[i] = n
	}
	return symbolic.TaylorShift(Variable, coeffs, a.x0).Expr(), true
}

// Float evaluates the series at x.
func (a *Approximation) Float(x float64) (float64, error) {
	v, err := symbolic.EvalAt(a.Polynomial, Variable, x)
	if err != nil {
		return math.NaN(), fmt.Errorf("%w: P%d(%g): %w", ErrEvaluation, a.Order, x, err)
	}
	return v, nil
}

// Equivalent reports whether two approximations are the same polynomial.
func (a *Approximation) Equivalent(other *Approximation) bool {
	return symbolic.Equivalent(a.Polynomial, other.Polynomial, Variable)
}
