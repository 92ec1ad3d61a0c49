// Package store defines the narrow, per-entity persistence interfaces the
// engine's components are wired against, plus an in-memory implementation
// for tests. Grounded on nhbchain's native/lending engineState interface
// (one Get/Put pair per entity kind), generalized from the lending
// module's Market/UserAccount/FeeAccrual trio to this engine's Market,
// Position, Vault, Chain, and User entities.
package store

import (
	"flashbets/chain"
	"flashbets/core/ids"
	"flashbets/oracle"
	"flashbets/position"
	"flashbets/verse"
)

// MarketRecord is the persisted snapshot of a market's immutable identity
// and mutable status, independent of which AMM kind backs its pricing
// state (that state lives inside the concrete amm/* engine and is
// persisted separately by the host's codec layer).
type MarketRecord struct {
	ID           [16]byte
	VerseID      verse.ID
	Title        string
	OutcomeCount int
	Status       MarketStatus
	SettleSlot   uint64
	WinningIndex int
	HasWinner    bool
}

// MarketStatus mirrors §3's Market lifecycle.
type MarketStatus int

const (
	MarketActive MarketStatus = iota
	MarketPaused
	MarketResolving
	MarketResolved
	MarketCancelled
)

// NewMarket mints a fresh market record with a globally unique id, active
// and awaiting its first trade. title is classified into a verse so this
// market's liquidity and coverage pool with every other market asking the
// same underlying question.
func NewMarket(title string, outcomeCount int, settleSlot uint64) *MarketRecord {
	return &MarketRecord{
		ID:           ids.NewMarketID(),
		VerseID:      verse.Classify(title),
		Title:        title,
		OutcomeCount: outcomeCount,
		Status:       MarketActive,
		SettleSlot:   settleSlot,
	}
}

// MarketStore persists market records.
type MarketStore interface {
	GetMarket(id [16]byte) (*MarketRecord, bool, error)
	PutMarket(record *MarketRecord) error
}

// PositionStore persists individual positions.
type PositionStore interface {
	GetPosition(id uint64) (*position.Position, bool, error)
	PutPosition(p *position.Position) error
	DeletePosition(id uint64) error
}

// VaultSnapshot is the persisted form of the vault singleton's accounting
// fields.
type VaultSnapshot struct {
	Balance       []byte
	TotalOI       []byte
	TotalBorrowed []byte
	Bootstrap     bool
}

// VaultStore persists the single vault singleton.
type VaultStore interface {
	GetVault() (*VaultSnapshot, bool, error)
	PutVault(snapshot *VaultSnapshot) error
}

// ChainStore persists user chain state.
type ChainStore interface {
	GetChain(owner string) (*chain.Chain, bool, error)
	PutChain(owner string, c *chain.Chain) error
	DeleteChain(owner string) error
}

// OracleStore persists per-market oracle feed state.
type OracleStore interface {
	GetFeed(marketID [16]byte) (*oracle.Feed, bool, error)
	PutFeed(marketID [16]byte, feed *oracle.Feed) error
}

// UserAccount is the persisted per-user aggregate from §3: a running
// 7-day volume window and the set of open position ids.
type UserAccount struct {
	Address        string
	SevenDayVolume []byte
	OpenPositions  []uint64
	ChainRefCount  int
}

// UserStore persists user accounts.
type UserStore interface {
	GetUser(addr string) (*UserAccount, bool, error)
	PutUser(account *UserAccount) error
}
