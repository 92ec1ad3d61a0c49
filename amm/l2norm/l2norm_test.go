package l2norm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/fixedpoint"
)

func mustFP(t *testing.T, v float64) fixedpoint.FP128 {
	t.Helper()
	f, err := fixedpoint.FP128FromFloat64(v)
	require.NoError(t, err)
	return f
}

func TestInitialPricesAreUniform(t *testing.T) {
	m, err := New(mustFP(t, 10), 5)
	require.NoError(t, err)
	prices, err := m.AllPrices()
	require.NoError(t, err)
	for _, p := range prices {
		require.InDelta(t, 0.2, p.Float64(), 1e-6)
	}
}

func TestPricesSumToOneAfterTrade(t *testing.T) {
	m, err := New(mustFP(t, 10), 4)
	require.NoError(t, err)
	require.NoError(t, m.Apply(0, fixedpoint.PositiveSigned128(mustFP(t, 3))))

	prices, err := m.AllPrices()
	require.NoError(t, err)
	sum := fixedpoint.Zero128()
	for _, p := range prices {
		sum, err = sum.Add(p)
		require.NoError(t, err)
	}
	require.InDelta(t, 1.0, sum.Float64(), 1e-6)
}

func TestNormInvariantHoldsAfterTrade(t *testing.T) {
	m, err := New(mustFP(t, 10), 4)
	require.NoError(t, err)
	require.NoError(t, m.Apply(0, fixedpoint.PositiveSigned128(mustFP(t, 5))))

	norm, err := m.norm()
	require.NoError(t, err)
	require.InDelta(t, 10.0, norm.Float64(), 1e-6)
}

func TestSellClampsToZero(t *testing.T) {
	m, err := New(mustFP(t, 10), 4)
	require.NoError(t, err)
	require.NoError(t, m.Apply(0, fixedpoint.NegativeSigned128(mustFP(t, 1000))))

	for _, fi := range m.Weights() {
		require.False(t, fi.LessThan(fixedpoint.Zero128()))
	}
}
