package lmsr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/fixedpoint"
)

func mustB(t *testing.T, v float64) fixedpoint.FP128 {
	t.Helper()
	b, err := fixedpoint.FP128FromFloat64(v)
	require.NoError(t, err)
	return b
}

func TestPricesSumToOne(t *testing.T) {
	m, err := New(mustB(t, 100), 3)
	require.NoError(t, err)

	shares := fixedpoint.PositiveSigned128(mustB(t, 10))
	require.NoError(t, m.Apply(0, shares))

	prices, err := m.AllPrices()
	require.NoError(t, err)
	require.Len(t, prices, 3)

	sum := fixedpoint.Zero128()
	for _, p := range prices {
		sum, err = sum.Add(p)
		require.NoError(t, err)
	}
	require.InDelta(t, 1.0, sum.Float64(), 1e-6)
}

func TestBuyingRaisesPrice(t *testing.T) {
	m, err := New(mustB(t, 100), 2)
	require.NoError(t, err)

	before, err := m.Price(0)
	require.NoError(t, err)

	shares := fixedpoint.PositiveSigned128(mustB(t, 20))
	require.NoError(t, m.Apply(0, shares))

	after, err := m.Price(0)
	require.NoError(t, err)
	require.True(t, after.GreaterThan(before), "expected price to rise after buying, before=%v after=%v", before, after)
}

func TestQuoteMatchesCostDifference(t *testing.T) {
	m, err := New(mustB(t, 50), 2)
	require.NoError(t, err)

	shares := fixedpoint.PositiveSigned128(mustB(t, 5))
	quote, err := m.Quote(0, shares)
	require.NoError(t, err)
	require.False(t, quote.Neg, "buying should always cost a non-negative amount")
	require.False(t, quote.IsZero())

	before, err := m.Cost()
	require.NoError(t, err)
	require.NoError(t, m.Apply(0, shares))
	after, err := m.Cost()
	require.NoError(t, err)
	diff, err := after.Sub(before)
	require.NoError(t, err)
	require.InDelta(t, diff.Float64(), quote.Float64(), 1e-9)
}

func TestInvalidOutcomeRejected(t *testing.T) {
	m, err := New(mustB(t, 100), 2)
	require.NoError(t, err)
	_, err = m.Price(5)
	require.Error(t, err)
}
