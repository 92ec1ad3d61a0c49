package events

import "flashbets/fixedpoint"

// PositionOpened is emitted when OpenPosition commits.
type PositionOpened struct {
	PositionID uint64
	Owner      string
	MarketID   [16]byte
	Outcome    int
	Leverage   int
	EntryPrice fixedpoint.FP64
}

func (PositionOpened) EventType() string { return "position_opened" }

// CloseReason mirrors position.CloseReason without importing it, keeping
// this package free of a dependency on the position manager.
type CloseReason int

const (
	ReasonUserInitiated CloseReason = iota
	ReasonLiquidated
	ReasonResolved
	ReasonAutoTriggered
)

// PositionClosed is emitted when a position leaves the Open state, by any
// of the four reasons a position can close.
type PositionClosed struct {
	PositionID uint64
	PnL        fixedpoint.Signed64
	Reason     CloseReason
}

func (PositionClosed) EventType() string { return "position_closed" }

// Liquidation is emitted for every partial or full liquidation draw.
type Liquidation struct {
	PositionID uint64
	Keeper     string
	Amount     fixedpoint.FP64
	Reward     fixedpoint.FP64
}

func (Liquidation) EventType() string { return "liquidation" }

// CoverageUpdated is emitted whenever vault_balance or total_oi changes.
type CoverageUpdated struct {
	Coverage fixedpoint.FP64
	Balance  fixedpoint.FP64
	TotalOI  fixedpoint.FP64
}

func (CoverageUpdated) EventType() string { return "coverage_updated" }

// CircuitBreakerTripped is emitted on every Normal->Halted transition.
type CircuitBreakerTripped struct {
	VerseID    [32]byte
	Reason     string
	ResumeSlot uint64
}

func (CircuitBreakerTripped) EventType() string { return "circuit_breaker_tripped" }

// ChainUnwound is emitted when a chain fails and unwinds, whether by the
// ordinary per-step reversal path or an emergency unwind.
type ChainUnwound struct {
	Owner     string
	Recovered fixedpoint.Signed64
	Emergency bool
}

func (ChainUnwound) EventType() string { return "chain_unwound" }
