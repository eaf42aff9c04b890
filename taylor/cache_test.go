package taylor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/njchilds90/gotaylor/symbolic"
	"github.com/njchilds90/gotaylor/taylor"
)

func TestDerivativeCache_Incremental(t *testing.T) {
	fn, err := taylor.ParseFunction("x^4")
	require.NoError(t, err)
	c := taylor.NewDerivativeCache(fn, nil)
	assert.Equal(t, 1, c.Len())

	d, err := c.Derivative(3)
	require.NoError(t, err)
	assert.Equal(t, "24*x", d.String())
	assert.Equal(t, 4, c.Len(), "every intermediate order is cached")

	d, err = c.Derivative(1)
	require.NoError(t, err)
	assert.Equal(t, "4*x^3", d.String())
	assert.Equal(t, 4, c.Len())
}

func TestDerivativeCache_Bounds(t *testing.T) {
	fn, err := taylor.ParseFunction("sin(x)")
	require.NoError(t, err)
	c := taylor.NewDerivativeCache(fn, nil)

	_, err = c.Derivative(-1)
	assert.ErrorIs(t, err, taylor.ErrInvalidOrder)
	_, err = c.Derivative(taylor.MaxOrder + 2)
	assert.ErrorIs(t, err, taylor.ErrInvalidOrder)

	d, err := c.Derivative(taylor.MaxOrder + 1)
	require.NoError(t, err)
	// 201 = 4*50 + 1, so the derivative is cos(x).
	assert.Equal(t, "cos(x)", d.String())
}

func TestDerivativeCache_MatchesFiniteDifferences(t *testing.T) {
	fn, err := taylor.ParseFunction("exp(sin(x))")
	require.NoError(t, err)
	c := taylor.NewDerivativeCache(fn, nil)
	f := func(x float64) float64 {
		v, err := fn.Float(x)
		require.NoError(t, err)
		return v
	}

	for _, x := range []float64{-0.7, 0.3, 1.2} {
		d1, err := c.Derivative(1)
		require.NoError(t, err)
		got1, err := symbolic.EvalAt(d1, taylor.Variable, x)
		require.NoError(t, err)
		want1 := fd.Derivative(f, x, &fd.Settings{Formula: fd.Central})
		assert.InDelta(t, want1, got1, 1e-6, "first derivative at %v", x)

		d2, err := c.Derivative(2)
		require.NoError(t, err)
		got2, err := symbolic.EvalAt(d2, taylor.Variable, x)
		require.NoError(t, err)
		want2 := fd.Derivative(f, x, &fd.Settings{Formula: fd.Central2nd})
		assert.InDelta(t, want2, got2, 1e-4, "second derivative at %v", x)
	}
}
