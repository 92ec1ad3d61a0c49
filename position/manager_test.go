package position

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/amm"
	"flashbets/breaker"
	"flashbets/core"
	ferrors "flashbets/core/errors"
	"flashbets/fees"
	"flashbets/fixedpoint"
	"flashbets/vault"
	"flashbets/verse"
)

// stubTradeEngine is a minimal amm.Engine whose Price reports priceBefore on
// its first call and priceAfter thereafter, so executeEntryTrade's
// before/after slippage check can be driven deterministically, and whose
// Quote prices every trade at a flat priceBefore so the test can verify
// OpenPosition's entry price is the trade's actual average execution price
// rather than a static pre-trade read.
type stubTradeEngine struct {
	priceBefore fixedpoint.FP128
	priceAfter  fixedpoint.FP128
	priceCalls  int
	applied     []fixedpoint.Signed128
}

func (s *stubTradeEngine) Kind() amm.Kind { return amm.KindLMSR }

func (s *stubTradeEngine) Price(int) (fixedpoint.FP128, error) {
	s.priceCalls++
	if s.priceCalls == 1 {
		return s.priceBefore, nil
	}
	return s.priceAfter, nil
}

func (s *stubTradeEngine) AllPrices() ([]fixedpoint.FP128, error) {
	return []fixedpoint.FP128{s.priceBefore}, nil
}

func (s *stubTradeEngine) Quote(outcome int, shares fixedpoint.Signed128) (fixedpoint.Signed128, error) {
	costMag, err := shares.Mag.Mul(s.priceBefore)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	return fixedpoint.Signed128{Mag: costMag, Neg: shares.Neg}, nil
}

func (s *stubTradeEngine) Apply(outcome int, shares fixedpoint.Signed128) error {
	s.applied = append(s.applied, shares)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *core.Params) {
	t.Helper()
	p, err := core.Default()
	require.NoError(t, err)

	v := vault.New(p)
	v.SetBootstrap(false)
	require.NoError(t, v.Deposit(fp(t, 10000)))

	feeEngine, err := fees.New(p)
	require.NoError(t, err)

	return New(v, feeEngine, p), p
}

func baseRequest(engine amm.Engine) OpenRequest {
	return OpenRequest{
		Owner:          "alice",
		Outcome:        0,
		OutcomeCount:   2,
		Direction:      Long,
		Engine:         engine,
		Margin:         fixedpoint.FP64{},
		Leverage:       5,
		MaxLeverage:    100,
		RiskQuizPassed: true,
	}
}

func TestOpenPositionEntryPriceFromTradeExecution(t *testing.T) {
	m, _ := newTestManager(t)
	priceBefore, err := fixedpoint.FP128FromFloat64(0.5)
	require.NoError(t, err)
	engine := &stubTradeEngine{priceBefore: priceBefore, priceAfter: priceBefore}

	req := baseRequest(engine)
	req.Margin = fp(t, 100)
	p, err := m.OpenPosition(req)
	require.NoError(t, err)

	// Quote priced the trade flat at priceBefore, so the average execution
	// price (and therefore EntryPrice) must equal it exactly even though the
	// price is derived from Quote/Apply, not read statically.
	require.InDelta(t, 0.5, p.EntryPrice.Float64(), 1e-9)
	require.Len(t, engine.applied, 1)
	require.False(t, engine.applied[0].Neg)
}

func TestOpenPositionRevertsOnExcessiveSlippage(t *testing.T) {
	m, _ := newTestManager(t)
	priceBefore, err := fixedpoint.FP128FromFloat64(0.5)
	require.NoError(t, err)
	priceAfter, err := fixedpoint.FP128FromFloat64(0.9)
	require.NoError(t, err)
	engine := &stubTradeEngine{priceBefore: priceBefore, priceAfter: priceAfter}

	req := baseRequest(engine)
	req.Margin = fp(t, 100)
	_, err = m.OpenPosition(req)
	require.ErrorIs(t, err, ferrors.ErrSlippageExceeded)

	// The entry trade is applied, then reverted with the exact negation once
	// the post-trade price move is found to exceed the slippage cap.
	require.Len(t, engine.applied, 2)
	require.Equal(t, engine.applied[0].Mag, engine.applied[1].Mag)
	require.NotEqual(t, engine.applied[0].Neg, engine.applied[1].Neg)
}

func TestOpenPositionBlockedWhileVerseHalted(t *testing.T) {
	m, p := newTestManager(t)
	registry := breaker.NewRegistry(p)
	m.SetBreakers(registry)

	verseID := verse.Classify("will btc exceed $100k by eoy")
	registry.Evaluate(verseID, breaker.Sample{
		Coverage:    fp(t, 0.1),
		CurrentSlot: 1,
	})
	require.Equal(t, breaker.StateHalted, registry.State(verseID))

	priceBefore, err := fixedpoint.FP128FromFloat64(0.5)
	require.NoError(t, err)
	engine := &stubTradeEngine{priceBefore: priceBefore, priceAfter: priceBefore}

	req := baseRequest(engine)
	req.VerseID = verseID
	req.Margin = fp(t, 100)
	_, err = m.OpenPosition(req)
	require.ErrorIs(t, err, ferrors.ErrCircuitBreakerTripped)
	require.Empty(t, engine.applied)
}
