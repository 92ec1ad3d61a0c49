package breaker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/core/events"
	"flashbets/fixedpoint"
)

func fp(t *testing.T, v float64) fixedpoint.FP64 {
	t.Helper()
	f, err := fixedpoint.FP64FromFloat64(v)
	require.NoError(t, err)
	return f
}

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(e events.Event) { r.events = append(r.events, e) }

func TestTripsOnLowCoverage(t *testing.T) {
	th, err := DefaultThresholds()
	require.NoError(t, err)
	th.CooldownSlots = 5
	b := NewWithThresholds(th)

	b.Evaluate(Sample{Coverage: fp(t, 0.4), CurrentSlot: 10})
	require.Equal(t, StateHalted, b.State())
	require.Equal(t, ReasonLowCoverage, b.Reason())
}

func TestHaltedToCooldownToNormal(t *testing.T) {
	th, err := DefaultThresholds()
	require.NoError(t, err)
	th.CooldownSlots = 5
	b := NewWithThresholds(th)

	b.Evaluate(Sample{Coverage: fp(t, 0.4), CurrentSlot: 10})
	require.Equal(t, StateHalted, b.State())

	b.Evaluate(Sample{Coverage: fp(t, 1), CurrentSlot: 15})
	require.Equal(t, StateCooldown, b.State())

	b.Evaluate(Sample{Coverage: fp(t, 1), CurrentSlot: 16})
	require.Equal(t, StateNormal, b.State())
}

func TestGuardBlocksTradesWhileHalted(t *testing.T) {
	th, err := DefaultThresholds()
	require.NoError(t, err)
	b := NewWithThresholds(th)
	b.Evaluate(Sample{Coverage: fp(t, 0.1), CurrentSlot: 1})

	require.Error(t, b.Guard(InstructionTrade))
	require.NoError(t, b.Guard(InstructionClose))
	require.NoError(t, b.Guard(InstructionLiquidation))
}

func TestEmergencyShutdownRequiresForceNormal(t *testing.T) {
	th, err := DefaultThresholds()
	require.NoError(t, err)
	b := NewWithThresholds(th)
	b.Shutdown()
	require.Equal(t, StateEmergencyShutdown, b.State())

	b.Evaluate(Sample{Coverage: fp(t, 1), CurrentSlot: 100})
	require.Equal(t, StateEmergencyShutdown, b.State())

	b.ForceNormal()
	require.Equal(t, StateNormal, b.State())
}

func TestTripEmitsCircuitBreakerTripped(t *testing.T) {
	th, err := DefaultThresholds()
	require.NoError(t, err)
	th.CooldownSlots = 5
	b := NewWithThresholds(th)
	rec := &recordingEmitter{}
	b.SetEmitter(rec)

	b.Evaluate(Sample{Coverage: fp(t, 0.4), CurrentSlot: 10})
	require.Len(t, rec.events, 1)
	ev, ok := rec.events[0].(events.CircuitBreakerTripped)
	require.True(t, ok)
	require.Equal(t, "low_coverage", ev.Reason)
	require.Equal(t, uint64(15), ev.ResumeSlot)
}
