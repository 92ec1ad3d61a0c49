// Package amm defines the shared pricing engine contract and the pure
// selection function that routes a market to one of the three concrete
// engines in amm/lmsr, amm/pmamm, and amm/l2norm. Grounded on
// auto_selector.rs's select_amm_type, carried over table-for-table.
package amm

import (
	"flashbets/fixedpoint"

	ferrors "flashbets/core/errors"
)

// Kind identifies which pricing engine backs a market.
type Kind int

const (
	KindLMSR Kind = iota
	KindPMAMM
	KindL2Norm
)

func (k Kind) String() string {
	switch k {
	case KindLMSR:
		return "lmsr"
	case KindPMAMM:
		return "pmamm"
	case KindL2Norm:
		return "l2norm"
	default:
		return "unknown"
	}
}

// OutcomeType hints at whether a market's outcome space is a discrete
// enumeration or a continuous range, influencing selection for markets with
// more than two outcomes.
type OutcomeType string

const (
	OutcomeDiscrete    OutcomeType = ""
	OutcomeRange       OutcomeType = "range"
	OutcomeContinuous  OutcomeType = "continuous"
	OutcomeDistribution OutcomeType = "distribution"
)

const (
	minOutcomes = 1
	maxOutcomes = 100
	// l2Threshold is the outcome count above which PM-AMM is no longer
	// viable and the market must use the discretized L2-norm engine.
	l2Threshold = 64
)

// SelectEngine is the pure routing function: given the outcome count and an
// optional continuous-distribution hint, it returns which engine a market
// must use. It never mutates state and never touches an oracle or clock, so
// the same (count, outcomeType) pair always selects the same Kind.
func SelectEngine(outcomeCount int, outcomeType OutcomeType) (Kind, error) {
	switch {
	case outcomeCount < minOutcomes || outcomeCount > maxOutcomes:
		return 0, ferrors.Validation(ferrors.ErrInvalidOutcome)
	case outcomeCount == 1:
		return KindLMSR, nil
	case outcomeCount == 2:
		return KindPMAMM, nil
	case outcomeCount <= l2Threshold:
		if isContinuous(outcomeType) {
			return KindL2Norm, nil
		}
		return KindPMAMM, nil
	default: // 65..=100
		return KindL2Norm, nil
	}
}

func isContinuous(t OutcomeType) bool {
	return t == OutcomeRange || t == OutcomeContinuous || t == OutcomeDistribution
}

// Engine is the contract every pricing engine implements: given the current
// on-chain quantity state, it can quote a price per outcome, quote the cost
// of a trade, and verify the no-arbitrage invariant that outcome prices sum
// to one.
type Engine interface {
	Kind() Kind
	Price(outcome int) (fixedpoint.FP128, error)
	AllPrices() ([]fixedpoint.FP128, error)
	// Quote returns the cost (positive) or proceeds (negative, signed) of
	// trading the signed share delta against outcome, without mutating
	// state.
	Quote(outcome int, shares fixedpoint.Signed128) (fixedpoint.Signed128, error)
	// Apply commits a previously quoted trade to the engine's internal
	// quantity state.
	Apply(outcome int, shares fixedpoint.Signed128) error
}
