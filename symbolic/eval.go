package symbolic

import (
	"errors"
	"fmt"
	"math"
)

// ErrUndefined reports that an expression has no real finite value at the
// requested point: a singularity, a domain violation, or an unbound variable.
var ErrUndefined = errors.New("undefined value")

func undefined(e Expr, reason string) error {
	return fmt.Errorf("%w: %s in %s", ErrUndefined, reason, e.String())
}

func finite(v float64, e Expr) (float64, error) {
	if math.IsNaN(v) {
		return 0, undefined(e, "not a number")
	}
	if math.IsInf(v, 0) {
		return 0, undefined(e, "infinite value")
	}
	return v, nil
}

// Lambdify compiles e into a one-variable numeric function.
func Lambdify(e Expr, varName string) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		return e.Float(Vars{varName: x})
	}
}

// EvalAt evaluates e numerically with varName bound to x.
func EvalAt(e Expr, varName string, x float64) (float64, error) {
	return e.Float(Vars{varName: x})
}
