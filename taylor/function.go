package taylor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/njchilds90/gotaylor/symbolic"
)

// Function is an immutable parsed formula in the variable x.
type Function struct {
	source string
	expr   symbolic.Expr
}

// ParseFunction parses src. Syntax errors wrap both ErrInvalidFunction and
// the underlying *symbolic.ParseError.
func ParseFunction(src string) (*Function, error) {
	src = strings.TrimSpace(src)
	expr, err := symbolic.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFunction, err)
	}
	var unknown []string
	for name := range symbolic.FreeSymbols(expr) {
		if name != Variable {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: unknown symbol(s) %s; only %s is allowed",
			ErrInvalidFunction, strings.Join(unknown, ", "), Variable)
	}
	return &Function{source: src, expr: expr}, nil
}

// Source returns the formula as the user wrote it.
func (f *Function) Source() string { return f.source }

// Expr returns the parsed expression.
func (f *Function) Expr() symbolic.Expr { return f.expr }

// String returns the canonical printed form.
func (f *Function) String() string { return f.expr.String() }

// Float evaluates the function at x.
func (f *Function) Float(x float64) (float64, error) {
	v, err := symbolic.EvalAt(f.expr, Variable, x)
	if err != nil {
		return math.NaN(), fmt.Errorf("%w: f(%g): %w", ErrEvaluation, x, err)
	}
	return v, nil
}

// expansionPoint converts x0 into an exact rational so that 0.1 stays 1/10.
func expansionPoint(x0 float64) (*symbolic.Num, error) {
	p := symbolic.NExact(x0)
	if p == nil {
		return nil, fmt.Errorf("%w: expansion point %v is not finite", ErrInvalidParameter, x0)
	}
	return p, nil
}
