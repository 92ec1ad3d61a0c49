package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultParamsMatchDocumentedDefaults(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)
	require.InDelta(t, 0.5, p.CoverageTauNormal.Float64(), 1e-9)
	require.InDelta(t, 0.7, p.CoverageTauBootstrap.Float64(), 1e-9)
	require.Equal(t, uint32(500), p.SlippageCapBps)
	require.Equal(t, 5, p.PMAMMMaxIters)
	require.Equal(t, 10, p.PMAMMHardIters)
}
