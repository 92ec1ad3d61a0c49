package pmamm

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

func TestInitialPricesAreHalf(t *testing.T) {
	m, err := New(mustFP(t, 10), mustFP(t, 100))
	require.NoError(t, err)

	yes, err := m.Price(1)
	require.NoError(t, err)
	no, err := m.Price(0)
	require.NoError(t, err)

	require.InDelta(t, 0.5, yes.Float64(), 1e-3)
	require.InDelta(t, 0.5, no.Float64(), 1e-3)
}

func TestPricesSumToOne(t *testing.T) {
	m, err := New(mustFP(t, 10), mustFP(t, 100))
	require.NoError(t, err)

	require.NoError(t, m.Apply(1, fixedpoint.PositiveSigned128(mustFP(t, 2))))

	prices, err := m.AllPrices()
	require.NoError(t, err)
	sum, err := prices[0].Add(prices[1])
	require.NoError(t, err)
	require.InDelta(t, 1.0, sum.Float64(), 1e-3)
}

func TestBuyingYesRaisesYesPrice(t *testing.T) {
	m, err := New(mustFP(t, 10), mustFP(t, 100))
	require.NoError(t, err)

	before, err := m.Price(1)
	require.NoError(t, err)

	require.NoError(t, m.Apply(1, fixedpoint.PositiveSigned128(mustFP(t, 3))))

	after, err := m.Price(1)
	require.NoError(t, err)
	require.True(t, after.GreaterThan(before))
}

func TestAdvanceRejectsPastExpiry(t *testing.T) {
	m, err := New(mustFP(t, 10), mustFP(t, 100))
	require.NoError(t, err)
	err = m.Advance(mustFP(t, 200))
	require.Error(t, err)
}
