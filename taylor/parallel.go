package taylor

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/njchilds90/gotaylor/symbolic"
)

// ComputeTermsParallel computes the terms of orders 0..order on a pool of
// workers. Each task parses source on its own and differentiates from
// scratch, so tasks share nothing but their slot in the result slice. The
// first failing task fails the whole batch with ErrParallel.
func ComputeTermsParallel(ctx context.Context, source string, x0 float64, order, workers int) ([]Term, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}
	point, err := expansionPoint(x0)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	terms := make([]Term, order+1)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for n := range terms {
		g.Go(func() (err error) {
			defer recoverAs(ErrParallel, fmt.Sprintf("worker for order %d", n), &err)
			if err := ctx.Err(); err != nil {
				return err
			}
			fn, err := ParseFunction(source)
			if err != nil {
				return err
			}
			deriv := symbolic.DiffN(fn.Expr(), Variable, n)
			t, err := buildTerm(deriv, point, n)
			if err != nil {
				return err
			}
			terms[n] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParallel, err)
	}
	return terms, nil
}
