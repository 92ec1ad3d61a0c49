package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSeedMissingFileReturnsEmpty(t *testing.T) {
	markets, err := LoadSeed(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Nil(t, markets)
}

func TestLoadSeedParsesMarkets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.yaml")
	content := `
markets:
  - name: will-it-rain
    outcomes: [yes, no]
    amm_kind: lmsr
    settle_slot: 500000
    liquidity_usd: 25000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	markets, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	require.Equal(t, "will-it-rain", markets[0].Name)
	require.Equal(t, []string{"yes", "no"}, markets[0].Outcomes)
}

func TestLoadSeedRejectsSingleOutcomeMarket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markets.yaml")
	content := `
markets:
  - name: broken
    outcomes: [only-one]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadSeed(path)
	require.Error(t, err)
}
