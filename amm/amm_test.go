package amm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectEngineTable(t *testing.T) {
	cases := []struct {
		count int
		typ   OutcomeType
		want  Kind
	}{
		{1, OutcomeDiscrete, KindLMSR},
		{2, OutcomeDiscrete, KindPMAMM},
		{5, OutcomeDiscrete, KindPMAMM},
		{10, OutcomeDiscrete, KindPMAMM},
		{64, OutcomeDiscrete, KindPMAMM},
		{65, OutcomeDiscrete, KindL2Norm},
		{100, OutcomeDiscrete, KindL2Norm},
		{5, OutcomeRange, KindL2Norm},
		{5, OutcomeContinuous, KindL2Norm},
		{5, OutcomeDistribution, KindL2Norm},
	}
	for _, c := range cases {
		got, err := SelectEngine(c.count, c.typ)
		require.NoError(t, err)
		require.Equal(t, c.want, got, "count=%d type=%q", c.count, c.typ)
	}
}

func TestSelectEngineRejectsOutOfRange(t *testing.T) {
	_, err := SelectEngine(0, OutcomeDiscrete)
	require.Error(t, err)
	_, err = SelectEngine(101, OutcomeDiscrete)
	require.Error(t, err)
}

func TestSelectEnginePure(t *testing.T) {
	a, err := SelectEngine(10, OutcomeDiscrete)
	require.NoError(t, err)
	b, err := SelectEngine(10, OutcomeDiscrete)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
