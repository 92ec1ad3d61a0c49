package fixedpoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpMatchesMathExp(t *testing.T) {
	cases := []float64{0, 0.001, 0.5, 1, 2, 3.5, 10}
	for _, c := range cases {
		x, err := FP128FromFloat64(c)
		require.NoError(t, err)
		got, err := Exp(x)
		require.NoError(t, err)
		require.InEpsilon(t, math.Exp(c), got.Float64(), 1e-6, "exp(%v)", c)
	}
}

func TestExpNegIsReciprocal(t *testing.T) {
	x, err := FP128FromFloat64(2.0)
	require.NoError(t, err)
	pos, err := Exp(x)
	require.NoError(t, err)
	neg, err := ExpNeg(x)
	require.NoError(t, err)

	product, err := pos.Mul(neg)
	require.NoError(t, err)
	require.InDelta(t, 1.0, product.Float64(), 1e-6)
}

func TestLnMatchesMathLog(t *testing.T) {
	cases := []float64{0.01, 0.5, 1, 2, 10, 100}
	for _, c := range cases {
		x, err := FP128FromFloat64(c)
		require.NoError(t, err)
		mag, neg, err := Ln(x)
		require.NoError(t, err)
		want := math.Log(c)
		got := mag.Float64()
		if neg {
			got = -got
		}
		require.InDelta(t, want, got, 1e-4, "ln(%v)", c)
	}
}

func TestSqrtExact(t *testing.T) {
	x, err := FP128FromFloat64(16.0)
	require.NoError(t, err)
	root, err := Sqrt(x)
	require.NoError(t, err)
	require.InDelta(t, 4.0, root.Float64(), 1e-6)
}
