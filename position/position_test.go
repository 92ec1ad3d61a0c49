package position

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/fixedpoint"
)

func fp(t *testing.T, v float64) fixedpoint.FP64 {
	t.Helper()
	f, err := fixedpoint.FP64FromFloat64(v)
	require.NoError(t, err)
	return f
}

func TestUnrealizedPnLLongGainsOnRise(t *testing.T) {
	p := &Position{Margin: fp(t, 100), Leverage: 10, EntryPrice: fp(t, 0.5), Direction: Long}
	pnl, err := p.UnrealizedPnL(fp(t, 0.55))
	require.NoError(t, err)
	require.False(t, pnl.Neg)
	require.InDelta(t, 100.0, pnl.Float64(), 1e-6) // notional=1000, 10% move -> 100
}

func TestUnrealizedPnLShortGainsOnDrop(t *testing.T) {
	p := &Position{Margin: fp(t, 100), Leverage: 10, EntryPrice: fp(t, 0.5), Direction: Short}
	pnl, err := p.UnrealizedPnL(fp(t, 0.45))
	require.NoError(t, err)
	require.False(t, pnl.Neg)
}

func TestEffectiveLeverageRisesWithLoss(t *testing.T) {
	p := &Position{Margin: fp(t, 100), Leverage: 10, EntryPrice: fp(t, 0.5), Direction: Long}
	initial, err := p.EffectiveLeverage(fp(t, 0.5))
	require.NoError(t, err)
	require.InDelta(t, 10.0, initial.Float64(), 1e-6)

	afterLoss, err := p.EffectiveLeverage(fp(t, 0.48))
	require.NoError(t, err)
	require.Greater(t, afterLoss.Float64(), initial.Float64())
}

func TestEffectiveLeverageFallsWithGain(t *testing.T) {
	p := &Position{Margin: fp(t, 100), Leverage: 10, EntryPrice: fp(t, 0.5), Direction: Long}
	afterGain, err := p.EffectiveLeverage(fp(t, 0.55))
	require.NoError(t, err)
	require.Less(t, afterGain.Float64(), 10.0)
}
