package taylor

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/njchilds90/gotaylor/symbolic"
)

// DerivativeCache memoizes the derivatives of one Function. Entries are
// computed on demand, never evicted and never shared with another Function.
type DerivativeCache struct {
	fn     *Function
	logger *zap.Logger

	mu     sync.Mutex
	derivs []symbolic.Expr // derivs[n] is the n-th derivative
}

// NewDerivativeCache returns a cache holding only the function itself.
func NewDerivativeCache(fn *Function, logger *zap.Logger) *DerivativeCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DerivativeCache{
		fn:     fn,
		logger: logger,
		derivs: []symbolic.Expr{fn.Expr()},
	}
}

func (c *DerivativeCache) Function() *Function { return c.fn }

// Len returns the number of cached orders, starting at order 0.
func (c *DerivativeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.derivs)
}

// Derivative returns the n-th derivative, differentiating from the highest
// cached order and caching every order in between. n may go one past
// MaxOrder so that remainder bounds for the top order can be computed.
func (c *DerivativeCache) Derivative(n int) (d symbolic.Expr, err error) {
	if n < 0 || n > MaxOrder+1 {
		return nil, fmt.Errorf("%w: derivative order %d is outside [0, %d]", ErrInvalidOrder, n, MaxOrder+1)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	defer recoverAs(ErrEvaluation, fmt.Sprintf("derivative of order %d", n), &err)

	for k := len(c.derivs); k <= n; k++ {
		c.derivs = append(c.derivs, symbolic.Diff(c.derivs[k-1], Variable))
		c.logger.Debug("derivative computed", zap.Int("order", k), zap.String("function", c.fn.Source()))
	}
	return c.derivs[n], nil
}
