// Package position owns the lifecycle of a single leveraged position: entry
// pricing against a market's AMM, liquidation-price derivation from the
// platform's volatility scalar, and PnL realization against the vault.
// Grounded on nhbchain's native/lending UserAccount for the narrow-method,
// exclusively-owned-aggregate shape, generalized from supply/borrow shares
// to a directional leveraged position against a prediction-market AMM.
package position

import (
	ferrors "flashbets/core/errors"
	"flashbets/fixedpoint"
	"flashbets/verse"
)

// Direction is which side of the outcome the position is exposed to.
type Direction int

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	if d == Short {
		return "short"
	}
	return "long"
}

// Status is a position's place in its lifecycle.
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
	StatusLiquidated
)

// CloseReason records why a position left the Open state. AutoTriggered
// covers a take-profit or stop-loss order firing on its own, distinct from
// a user-initiated manual close.
type CloseReason int

const (
	UserInitiated CloseReason = iota
	LiquidatedReason
	Resolved
	AutoTriggered
)

func (r CloseReason) String() string {
	switch r {
	case LiquidatedReason:
		return "liquidated"
	case Resolved:
		return "resolved"
	case AutoTriggered:
		return "auto_triggered"
	default:
		return "user_initiated"
	}
}

// Position is owned by exactly one user and bound to exactly one market and
// outcome for its entire lifetime.
type Position struct {
	ID         uint64
	Owner      string
	MarketID   [16]byte
	VerseID    verse.ID
	Outcome    int
	Direction  Direction
	Margin     fixedpoint.FP64
	Leverage   int
	EntryPrice fixedpoint.FP64
	// RequiredMarginRatio is the minimum equity/notional ratio this position
	// must maintain while Open, fixed at open time from the leverage and
	// outcome-cardinality margin formula in requiredMarginRatio.
	RequiredMarginRatio fixedpoint.FP64
	LiquidationPrice    fixedpoint.FP64
	Status              Status

	// LastWarnedAt and LiquidatedThisSlot back the liquidation engine's
	// per-position, per-slot partial-liquidation accumulator and priority
	// tiebreak.
	LastWarnedAt       uint64
	LiquidatedThisSlot fixedpoint.FP64
	LiquidatedSlot     uint64

	// TakeProfit and StopLoss are optional auto-close trigger prices.
	TakeProfit *fixedpoint.FP64
	StopLoss   *fixedpoint.FP64
}

// Notional returns margin*leverage, the position's full exposure size.
func (p *Position) Notional() (fixedpoint.FP64, error) {
	return p.Margin.Mul(fixedpoint.FP64FromUint64(uint64(p.Leverage)))
}

// UnrealizedPnL approximates leveraged PnL as notional scaled by the
// fractional price move since entry, signed by direction: a Long gains when
// mark rises above entry, a Short gains when it falls below.
func (p *Position) UnrealizedPnL(mark fixedpoint.FP64) (fixedpoint.Signed64, error) {
	notional, err := p.Notional()
	if err != nil {
		return fixedpoint.Signed64{}, err
	}
	var diff fixedpoint.FP64
	priceRose := mark.GreaterThan(p.EntryPrice)
	if priceRose {
		diff, err = mark.Sub(p.EntryPrice)
	} else {
		diff, err = p.EntryPrice.Sub(mark)
	}
	if err != nil {
		return fixedpoint.Signed64{}, err
	}
	if p.EntryPrice.IsZero() {
		return fixedpoint.Signed64{}, ferrors.Arithmetic(ferrors.ErrDivisionByZero)
	}
	ratio, err := diff.Div(p.EntryPrice)
	if err != nil {
		return fixedpoint.Signed64{}, err
	}
	mag, err := ratio.Mul(notional)
	if err != nil {
		return fixedpoint.Signed64{}, err
	}
	gains := priceRose == (p.Direction == Long)
	return fixedpoint.Signed64{Mag: mag, Neg: !gains}, nil
}

// Equity returns margin+unrealized_pnl, floored at zero: a position whose
// loss exceeds its posted margin has no equity left to report, rather than
// an unsigned underflow.
func (p *Position) Equity(mark fixedpoint.FP64) (fixedpoint.Signed64, error) {
	pnl, err := p.UnrealizedPnL(mark)
	if err != nil {
		return fixedpoint.Signed64{}, err
	}
	equity, err := fixedpoint.PositiveSigned64(p.Margin).Add(pnl)
	if err != nil {
		return fixedpoint.Signed64{}, err
	}
	if equity.Neg {
		return fixedpoint.Signed64{}, nil
	}
	return equity, nil
}

// EffectiveLeverage recomputes notional/(margin+unrealized_pnl) on every
// mark, per §4.5: profit widens margin and lowers effective leverage, loss
// erodes it and raises effective leverage. A wiped-out equity position
// reports Max64 ("infinite" leverage) rather than dividing by zero.
func (p *Position) EffectiveLeverage(mark fixedpoint.FP64) (fixedpoint.FP64, error) {
	notional, err := p.Notional()
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	equity, err := p.Equity(mark)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	if equity.IsZero() {
		return fixedpoint.Max64(), nil
	}
	return notional.Div(equity.Mag)
}

// MarginRatio is the inverse of effective leverage: equity/notional.
func (p *Position) MarginRatio(mark fixedpoint.FP64) (fixedpoint.FP64, error) {
	notional, err := p.Notional()
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	equity, err := p.Equity(mark)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	if notional.IsZero() {
		return fixedpoint.Zero64(), nil
	}
	return equity.Mag.Div(notional)
}
