package taylor

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFunction reports an unparseable formula or one that uses
	// identifiers other than x, pi and E.
	ErrInvalidFunction = errors.New("invalid function")
	// ErrInvalidOrder reports an order outside [0, MaxOrder].
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidParameter reports a non-finite expansion or evaluation point
	// or an otherwise unusable numeric argument.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrEvaluation reports a failure to evaluate at a specific point.
	ErrEvaluation = errors.New("evaluation failed")
	// ErrParallel reports that the parallel term computation failed.
	ErrParallel = errors.New("parallel computation failed")
)

const (
	// MaxOrder is the highest supported series order.
	MaxOrder = 200
	// Variable is the free variable of every Function.
	Variable = "x"
)

// ValidateOrder checks that n is a supported series order.
func ValidateOrder(n int) error {
	if n < 0 || n > MaxOrder {
		return fmt.Errorf("%w: %d is outside [0, %d]", ErrInvalidOrder, n, MaxOrder)
	}
	return nil
}

// recoverAs turns a panic raised by the expression kernel into an error
// wrapping sentinel.
func recoverAs(sentinel error, op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s: %v", sentinel, op, r)
	}
}
