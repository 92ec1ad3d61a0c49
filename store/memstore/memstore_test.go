package memstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"flashbets/store"
)

var (
	_ store.MarketStore   = (*Store)(nil)
	_ store.PositionStore = (*Store)(nil)
	_ store.VaultStore    = (*Store)(nil)
	_ store.ChainStore    = (*Store)(nil)
	_ store.OracleStore   = (*Store)(nil)
	_ store.UserStore     = (*Store)(nil)
)

func TestMarketRoundTrip(t *testing.T) {
	s := New()
	id := [16]byte{1}
	require.NoError(t, s.PutMarket(&store.MarketRecord{ID: id, OutcomeCount: 2}))

	got, ok, err := s.GetMarket(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, got.OutcomeCount)
}

func TestVaultRoundTrip(t *testing.T) {
	s := New()
	_, ok, err := s.GetVault()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.PutVault(&store.VaultSnapshot{Bootstrap: true}))
	got, ok, err := s.GetVault()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Bootstrap)
}
