package fixedpoint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFP64AddSubRoundTrip(t *testing.T) {
	a, err := FP64FromFloat64(1.5)
	require.NoError(t, err)
	b, err := FP64FromFloat64(0.25)
	require.NoError(t, err)

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.InDelta(t, 1.75, sum.Float64(), 1e-9)

	diff, err := sum.Sub(b)
	require.NoError(t, err)
	require.InDelta(t, 1.5, diff.Float64(), 1e-9)
}

func TestFP64SubUnderflow(t *testing.T) {
	a, err := FP64FromFloat64(1.0)
	require.NoError(t, err)
	b, err := FP64FromFloat64(2.0)
	require.NoError(t, err)

	_, err = a.Sub(b)
	require.Error(t, err)
}

func TestFP64MulDiv(t *testing.T) {
	a, err := FP64FromFloat64(0.5)
	require.NoError(t, err)
	b, err := FP64FromFloat64(0.5)
	require.NoError(t, err)

	product, err := a.Mul(b)
	require.NoError(t, err)
	require.InDelta(t, 0.25, product.Float64(), 1e-9)

	quotient, err := product.Div(a)
	require.NoError(t, err)
	require.InDelta(t, 0.5, quotient.Float64(), 1e-9)
}

func TestFP64DivByZero(t *testing.T) {
	a, err := FP64FromFloat64(1.0)
	require.NoError(t, err)
	_, err = a.Div(Zero64())
	require.Error(t, err)
}

func TestFP64FromFloat64Negative(t *testing.T) {
	_, err := FP64FromFloat64(-1.0)
	require.Error(t, err)
}
