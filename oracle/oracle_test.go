package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/fixedpoint"
)

func mustFP64(t *testing.T, v float64) fixedpoint.FP64 {
	t.Helper()
	f, err := fixedpoint.FP64FromFloat64(v)
	require.NoError(t, err)
	return f
}

func testConfig(t *testing.T) Config {
	return Config{
		MaxAgeSlots:     150,
		ConfidenceFloor: mustFP64(t, 0.95),
		SpreadHaltBps:   1000,
	}
}

func TestSpreadHalt(t *testing.T) {
	f := NewFeed(testConfig(t))
	err := f.Apply(RawUpdate{
		YesPrice:       mustFP64(t, 0.7),
		NoPrice:        mustFP64(t, 0.45),
		LastUpdateSlot: 100,
		Confidence:     mustFP64(t, 0.99),
	}, 100)
	require.NoError(t, err)
	require.Equal(t, StatusHaltedSpread, f.Status())

	_, err = f.Mid()
	require.Error(t, err)
}

func TestStaleness(t *testing.T) {
	f := NewFeed(testConfig(t))
	err := f.Apply(RawUpdate{
		YesPrice:       mustFP64(t, 0.5),
		NoPrice:        mustFP64(t, 0.5),
		LastUpdateSlot: 100,
		Confidence:     mustFP64(t, 0.99),
	}, 300)
	require.NoError(t, err)
	require.Equal(t, StatusStale, f.Status())
}

func TestConfidenceFloorRejectsSampleWithoutChangingStatus(t *testing.T) {
	f := NewFeed(testConfig(t))
	require.NoError(t, f.Apply(RawUpdate{
		YesPrice:       mustFP64(t, 0.5),
		NoPrice:        mustFP64(t, 0.5),
		LastUpdateSlot: 100,
		Confidence:     mustFP64(t, 0.99),
	}, 100))
	require.Equal(t, StatusActive, f.Status())

	err := f.Apply(RawUpdate{
		YesPrice:       mustFP64(t, 0.6),
		NoPrice:        mustFP64(t, 0.4),
		LastUpdateSlot: 101,
		Confidence:     mustFP64(t, 0.5),
	}, 101)
	require.Error(t, err)
	require.Equal(t, StatusActive, f.Status())
}

func TestActiveMidIsAverage(t *testing.T) {
	f := NewFeed(testConfig(t))
	require.NoError(t, f.Apply(RawUpdate{
		YesPrice:       mustFP64(t, 0.6),
		NoPrice:        mustFP64(t, 0.4),
		LastUpdateSlot: 100,
		Confidence:     mustFP64(t, 0.99),
	}, 100))

	mid, err := f.Mid()
	require.NoError(t, err)
	require.InDelta(t, 0.5, mid.Float64(), 1e-9)
}
