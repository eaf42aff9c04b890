// Package taylor builds truncated Taylor series of a one-variable function
// and measures how far they are from the function.
//
// An Approximator holds the current Function together with a
// DerivativeCache. Terms are f⁽ⁿ⁾(x0)·(x−x0)ⁿ/n! with the derivative folded
// to a number at x0; Series sums them for orders 0..N and ParallelSeries
// does the same on a worker pool that rebuilds every derivative
// independently. ExactError and LagrangeBound compare a series with its
// function at a point.
package taylor
