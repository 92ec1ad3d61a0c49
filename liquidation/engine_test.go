package liquidation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/amm"
	"flashbets/core"
	ferrors "flashbets/core/errors"
	"flashbets/fees"
	"flashbets/fixedpoint"
	"flashbets/position"
	"flashbets/vault"
)

type stubEngine struct {
	price fixedpoint.FP128
}

func (s stubEngine) Kind() amm.Kind                     { return amm.KindLMSR }
func (s stubEngine) Price(int) (fixedpoint.FP128, error) { return s.price, nil }
func (s stubEngine) AllPrices() ([]fixedpoint.FP128, error) {
	return []fixedpoint.FP128{s.price}, nil
}
func (s stubEngine) Quote(_ int, shares fixedpoint.Signed128) (fixedpoint.Signed128, error) {
	costMag, err := shares.Mag.Mul(s.price)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	return fixedpoint.Signed128{Mag: costMag, Neg: shares.Neg}, nil
}
func (s stubEngine) Apply(int, fixedpoint.Signed128) error { return nil }

func fp(t *testing.T, v float64) fixedpoint.FP64 {
	t.Helper()
	f, err := fixedpoint.FP64FromFloat64(v)
	require.NoError(t, err)
	return f
}

func setup(t *testing.T) (*vault.Vault, *position.Manager, uint64) {
	p, err := core.Default()
	require.NoError(t, err)

	v := vault.New(p)
	v.SetBootstrap(false)
	require.NoError(t, v.Deposit(fp(t, 10000)))

	feeEngine, err := fees.New(p)
	require.NoError(t, err)

	pm := position.New(v, feeEngine, p)

	price, err := fixedpoint.FP128FromFloat64(0.5)
	require.NoError(t, err)
	engine := stubEngine{price: price}

	pos, err := pm.OpenPosition(position.OpenRequest{
		Owner:          "alice",
		Outcome:        0,
		OutcomeCount:   2,
		Direction:      position.Long,
		Engine:         engine,
		Margin:         fp(t, 100),
		Leverage:       50,
		MaxLeverage:    100,
		RiskQuizPassed: true,
	})
	require.NoError(t, err)
	return v, pm, pos.ID
}

func TestLiquidateRejectsHealthyPosition(t *testing.T) {
	v, pm, id := setup(t)
	params, err := core.Default()
	require.NoError(t, err)
	eng := New(params, v, pm)

	coverage, err := v.Coverage()
	require.NoError(t, err)

	_, err = eng.Liquidate(id, fp(t, 0.5), coverage, fp(t, 0.02), fp(t, 5000), 1)
	require.Error(t, err)
}

func TestLiquidateUnhealthyPosition(t *testing.T) {
	v, pm, id := setup(t)
	params, err := core.Default()
	require.NoError(t, err)
	eng := New(params, v, pm)

	coverage, err := v.Coverage()
	require.NoError(t, err)

	result, err := eng.Liquidate(id, fp(t, 0.40), coverage, fp(t, 0.02), fp(t, 5000), 1)
	require.NoError(t, err)
	require.False(t, result.LiquidatedNotional.IsZero())
}

func TestAccumulatorResetsAcrossSlots(t *testing.T) {
	v, pm, id := setup(t)
	params, err := core.Default()
	require.NoError(t, err)
	eng := New(params, v, pm)

	coverage, err := v.Coverage()
	require.NoError(t, err)

	_, err = eng.Liquidate(id, fp(t, 0.40), coverage, fp(t, 0.02), fp(t, 5000), 1)
	require.NoError(t, err)

	accum := eng.accumulatorFor([16]byte{}, 2)
	require.True(t, accum.used.IsZero())
}

func TestLiquidateAsKeeperRateLimitsRepeatedAttempts(t *testing.T) {
	v, pm, id := setup(t)
	params, err := core.Default()
	require.NoError(t, err)
	eng := New(params, v, pm)

	coverage, err := v.Coverage()
	require.NoError(t, err)

	// Drain the burst allowance against a healthy position: every attempt
	// fails on health, never on the rate limiter, while tokens remain.
	for i := 0; i < KeeperBurst; i++ {
		_, err := eng.LiquidateAsKeeper("bob", id, fp(t, 0.5), coverage, fp(t, 0.02), fp(t, 5000), 1)
		require.ErrorIs(t, err, ferrors.ErrPositionHealthy)
	}
	// The burst is now exhausted: the very next attempt is rejected by the
	// limiter itself, before health is even re-derived.
	_, err = eng.LiquidateAsKeeper("bob", id, fp(t, 0.5), coverage, fp(t, 0.02), fp(t, 5000), 1)
	require.ErrorIs(t, err, ferrors.ErrRateLimitExceeded)
}
