package vault

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/core"
	"flashbets/core/events"
	"flashbets/fixedpoint"
)

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(e events.Event) { r.events = append(r.events, e) }

func mustFP64(t *testing.T, v float64) fixedpoint.FP64 {
	t.Helper()
	f, err := fixedpoint.FP64FromFloat64(v)
	require.NoError(t, err)
	return f
}

func newTestVault(t *testing.T) *Vault {
	p, err := core.Default()
	require.NoError(t, err)
	v := New(p)
	v.SetBootstrap(false)
	return v
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Deposit(mustFP64(t, 100)))
	require.InDelta(t, 100, v.Balance().Float64(), 1e-9)

	require.NoError(t, v.Withdraw(mustFP64(t, 40)))
	require.InDelta(t, 60, v.Balance().Float64(), 1e-9)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Deposit(mustFP64(t, 10)))
	err := v.Withdraw(mustFP64(t, 20))
	require.Error(t, err)
}

func TestCoverageZeroOIIsInfinite(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Deposit(mustFP64(t, 100)))
	coverage, err := v.Coverage()
	require.NoError(t, err)
	require.True(t, coverage.Equal(fixedpoint.Max64()))
}

func TestCoverageWithOI(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Deposit(mustFP64(t, 50)))
	require.NoError(t, v.IncreaseOI(mustFP64(t, 100)))

	coverage, err := v.Coverage()
	require.NoError(t, err)
	// tau=0.5, balance=50, oi=100 -> coverage = 50/(0.5*100) = 1.0
	require.InDelta(t, 1.0, coverage.Float64(), 1e-6)
}

func TestMaxLeverageGates(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Deposit(mustFP64(t, 1100)))
	require.NoError(t, v.IncreaseOI(mustFP64(t, 100)))
	// coverage = 1100/(0.5*100) = 22 -> base cap 100
	max, err := v.MaxLeverage(0, 2)
	require.NoError(t, err)
	// outcome tier cap for N=2 is 70, which is the binding constraint.
	require.Equal(t, 70, max)
}

func TestMaxLeverageBootstrapZeroOI(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Deposit(mustFP64(t, 100)))
	max, err := v.MaxLeverage(0, 1)
	require.NoError(t, err)
	require.Equal(t, 0, max)
}

func TestRealizePnLGainPaysOutOfVault(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Deposit(mustFP64(t, 100)))
	require.NoError(t, v.RealizePnL(fixedpoint.PositiveSigned64(mustFP64(t, 20))))
	require.InDelta(t, 80, v.Balance().Float64(), 1e-9)
}

func TestRealizePnLLossAbsorbedIntoVault(t *testing.T) {
	v := newTestVault(t)
	require.NoError(t, v.Deposit(mustFP64(t, 100)))
	require.NoError(t, v.RealizePnL(fixedpoint.NegativeSigned64(mustFP64(t, 20))))
	require.InDelta(t, 120, v.Balance().Float64(), 1e-9)
}

func TestDepositEmitsCoverageUpdated(t *testing.T) {
	v := newTestVault(t)
	rec := &recordingEmitter{}
	v.SetEmitter(rec)

	require.NoError(t, v.Deposit(mustFP64(t, 100)))
	require.Len(t, rec.events, 1)
	ev, ok := rec.events[0].(events.CoverageUpdated)
	require.True(t, ok)
	require.InDelta(t, 100, ev.Balance.Float64(), 1e-9)
}
