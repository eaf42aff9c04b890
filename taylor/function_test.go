package taylor_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/gotaylor/symbolic"
	"github.com/njchilds90/gotaylor/taylor"
)

func TestParseFunction(t *testing.T) {
	fn, err := taylor.ParseFunction("  sin(x) + pi*x  ")
	require.NoError(t, err)
	assert.Equal(t, "sin(x) + pi*x", fn.Source())

	v, err := fn.Float(1)
	require.NoError(t, err)
	assert.InDelta(t, math.Sin(1)+math.Pi, v, 1e-12)
}

func TestParseFunction_Constant(t *testing.T) {
	fn, err := taylor.ParseFunction("5")
	require.NoError(t, err)
	v, err := fn.Float(123)
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestParseFunction_SyntaxError(t *testing.T) {
	_, err := taylor.ParseFunction("sin(x")
	require.Error(t, err)
	assert.ErrorIs(t, err, taylor.ErrInvalidFunction)

	var pe *symbolic.ParseError
	assert.True(t, errors.As(err, &pe), "syntax errors should carry the parse position")
}

func TestParseFunction_ForeignSymbols(t *testing.T) {
	for _, src := range []string{"x + y", "a*x^2", "t"} {
		_, err := taylor.ParseFunction(src)
		assert.ErrorIs(t, err, taylor.ErrInvalidFunction, src)
	}
}

func TestFunction_FloatUndefined(t *testing.T) {
	fn, err := taylor.ParseFunction("ln(x)")
	require.NoError(t, err)
	_, err = fn.Float(-1)
	assert.ErrorIs(t, err, taylor.ErrEvaluation)
	assert.ErrorIs(t, err, symbolic.ErrUndefined)
}

func TestValidateOrder(t *testing.T) {
	assert.NoError(t, taylor.ValidateOrder(0))
	assert.NoError(t, taylor.ValidateOrder(taylor.MaxOrder))
	assert.ErrorIs(t, taylor.ValidateOrder(-1), taylor.ErrInvalidOrder)
	assert.ErrorIs(t, taylor.ValidateOrder(taylor.MaxOrder+1), taylor.ErrInvalidOrder)
}
