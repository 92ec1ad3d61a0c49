// Package lmsr implements the logarithmic market scoring rule engine used
// for single-outcome markets: cost C(q) = b*ln(sum(exp(q_i/b))), price_i =
// exp(q_i/b) / sum(exp(q_j/b)). Grounded line-for-line on lmsr_amm.rs's
// LSMRMarket, translated from its FixedPoint helper onto fixedpoint.FP128
// and fixedpoint.Signed128 so quantities can go negative when a position is
// sold down.
package lmsr

import (
	"flashbets/amm"
	ferrors "flashbets/core/errors"
	"flashbets/fixedpoint"
)

// maxBAdjustmentBps bounds AdjustB: a single adjustment can never move
// b by more than 20%, so a governance mistake or a bad oracle read can't
// reprice the whole book in one step. minBFloat is the floor b can never be
// driven below, since the cost function's exp(q/b) term blows up as b nears
// zero.
const (
	maxBAdjustmentBps = 2000
	minBFloat         = 1e-6
)

// Market holds the LMSR cost-function state for one market.
type Market struct {
	b fixedpoint.FP128                // liquidity parameter
	q []fixedpoint.Signed128 // per-outcome quantity, signed
}

// New constructs an LMSR market with num_outcomes quantities initialized to
// zero, matching LSMRMarket::new.
func New(b fixedpoint.FP128, numOutcomes int) (*Market, error) {
	if numOutcomes < 1 {
		return nil, ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	if b.IsZero() {
		return nil, ferrors.Validation(ferrors.ErrInvalidInput)
	}
	q := make([]fixedpoint.Signed128, numOutcomes)
	return &Market{b: b, q: q}, nil
}

func (m *Market) Kind() amm.Kind { return amm.KindLMSR }

// expTerms returns exp(q_i/b) for every outcome and their sum, the shared
// computation behind cost, price, and all_prices.
func (m *Market) expTerms() ([]fixedpoint.FP128, fixedpoint.FP128, error) {
	terms := make([]fixedpoint.FP128, len(m.q))
	sum := fixedpoint.Zero128()
	for i, qi := range m.q {
		reduced, err := qi.Div(m.b)
		if err != nil {
			return nil, fixedpoint.FP128{}, err
		}
		term, err := reduced.Exp()
		if err != nil {
			return nil, fixedpoint.FP128{}, err
		}
		terms[i] = term
		sum, err = sum.Add(term)
		if err != nil {
			return nil, fixedpoint.FP128{}, err
		}
	}
	return terms, sum, nil
}

// Cost computes C(q) = b*ln(sum(exp(q_i/b))).
func (m *Market) Cost() (fixedpoint.Signed128, error) {
	_, sum, err := m.expTerms()
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	lnMag, lnNeg, err := fixedpoint.Ln(sum)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	cost, err := m.b.Mul(lnMag)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	return fixedpoint.Signed128{Mag: cost, Neg: lnNeg}, nil
}

// Price returns p_i = exp(q_i/b) / sum(exp(q_j/b)).
func (m *Market) Price(outcome int) (fixedpoint.FP128, error) {
	if outcome < 0 || outcome >= len(m.q) {
		return fixedpoint.FP128{}, ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	terms, sum, err := m.expTerms()
	if err != nil {
		return fixedpoint.FP128{}, err
	}
	return terms[outcome].Div(sum)
}

// AllPrices returns every outcome's price and verifies they sum to within
// 1e-6 of one, matching LSMRMarket::all_prices's price-sum invariant check.
func (m *Market) AllPrices() ([]fixedpoint.FP128, error) {
	terms, sum, err := m.expTerms()
	if err != nil {
		return nil, err
	}
	prices := make([]fixedpoint.FP128, len(terms))
	total := fixedpoint.Zero128()
	for i, term := range terms {
		p, err := term.Div(sum)
		if err != nil {
			return nil, err
		}
		prices[i] = p
		total, err = total.Add(p)
		if err != nil {
			return nil, err
		}
	}

	epsilon, err := fixedpoint.FP128FromFloat64(0.000001)
	if err != nil {
		return nil, err
	}
	one := fixedpoint.One128()
	var diff fixedpoint.FP128
	if total.GreaterThan(one) {
		diff, err = total.Sub(one)
	} else {
		diff, err = one.Sub(total)
	}
	if err != nil {
		return nil, err
	}
	if diff.GreaterThan(epsilon) {
		return nil, ferrors.Pricing(ferrors.ErrPriceSumError)
	}
	return prices, nil
}

// Quote returns the cost (or, for a negative share delta, the signed
// proceeds) of trading shares against outcome without mutating state,
// matching LSMRMarket::buy_cost's before/after cost-function difference.
func (m *Market) Quote(outcome int, shares fixedpoint.Signed128) (fixedpoint.Signed128, error) {
	if outcome < 0 || outcome >= len(m.q) {
		return fixedpoint.Signed128{}, ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	if shares.IsZero() {
		return fixedpoint.Signed128{}, ferrors.Validation(ferrors.ErrInvalidInput)
	}

	before, err := m.Cost()
	if err != nil {
		return fixedpoint.Signed128{}, err
	}

	trial := &Market{b: m.b, q: append([]fixedpoint.Signed128(nil), m.q...)}
	trial.q[outcome], err = trial.q[outcome].Add(shares)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}

	after, err := trial.Cost()
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	return after.Sub(before)
}

// Apply commits shares to outcome's quantity. A sell can never drive a
// quantity negative beyond what was actually bought, so the result is
// clamped at zero rather than allowed to go negative from a rounding
// overshoot.
func (m *Market) Apply(outcome int, shares fixedpoint.Signed128) error {
	if outcome < 0 || outcome >= len(m.q) {
		return ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	updated, err := m.q[outcome].Add(shares)
	if err != nil {
		return err
	}
	if updated.Neg && !m.q[outcome].Neg {
		updated = fixedpoint.Signed128{}
	}
	m.q[outcome] = updated
	return nil
}

// SetB replaces the liquidity parameter outright, enforcing the minimum b
// floor. Used for initial configuration; AdjustB is used for live governance
// changes since it additionally caps the size of a single move.
func (m *Market) SetB(b fixedpoint.FP128) error {
	floor, err := fixedpoint.FP128FromFloat64(minBFloat)
	if err != nil {
		return err
	}
	if b.LessThan(floor) {
		return ferrors.Validation(ferrors.ErrInvalidInput)
	}
	m.b = b
	return nil
}

// AdjustB moves the liquidity parameter toward newB, capping the change at
// maxBAdjustmentBps (20%) of the current value so a single governance action
// can't reprice the whole book at once. newB is still subject to the
// minimum-b floor after capping.
func (m *Market) AdjustB(newB fixedpoint.FP128) error {
	floor, err := fixedpoint.FP128FromFloat64(minBFloat)
	if err != nil {
		return err
	}
	if newB.LessThan(floor) {
		return ferrors.Validation(ferrors.ErrInvalidInput)
	}

	maxDelta, err := bpsOf(m.b, maxBAdjustmentBps)
	if err != nil {
		return err
	}

	capped := newB
	if newB.GreaterThan(m.b) {
		limit, err := m.b.Add(maxDelta)
		if err != nil {
			return err
		}
		if newB.GreaterThan(limit) {
			capped = limit
		}
	} else {
		var delta fixedpoint.FP128
		delta, err = m.b.Sub(newB)
		if err != nil {
			return err
		}
		if delta.GreaterThan(maxDelta) {
			limit, err := m.b.Sub(maxDelta)
			if err != nil {
				return err
			}
			if limit.LessThan(floor) {
				limit = floor
			}
			capped = limit
		}
	}

	return m.SetB(capped)
}

// bpsOf returns value*bps/10000.
func bpsOf(value fixedpoint.FP128, bps uint32) (fixedpoint.FP128, error) {
	scaled, err := value.Mul(fixedpoint.FP128FromUint64(uint64(bps)))
	if err != nil {
		return fixedpoint.FP128{}, err
	}
	return scaled.Div(fixedpoint.FP128FromUint64(10000))
}

// Quantities exposes a copy of the internal quantity vector for snapshots.
func (m *Market) Quantities() []fixedpoint.Signed128 {
	return append([]fixedpoint.Signed128(nil), m.q...)
}

// B returns the liquidity parameter.
func (m *Market) B() fixedpoint.FP128 { return m.b }
