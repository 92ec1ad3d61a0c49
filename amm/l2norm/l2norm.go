// Package l2norm implements the discretized L2-norm AMM used for markets
// with more than 64 outcomes, or for 3-64 outcome markets explicitly typed
// as a continuous range or distribution. The engine holds a non-negative
// weight vector f over a discretized outcome grid constrained to
// ||f||_2 = k; each outcome's price is its squared share of that norm,
// f_i^2/k^2, so prices are automatically non-negative and sum to one.
// Trading perturbs f directly and then clamp-then-rescales it back onto the
// constraint surface, grounded on calculate_l2_price's square-root market
// impact in math.rs but generalized from a single scalar impact factor to
// the full discretized constrained vector the spec's L2-norm engine needs.
package l2norm

import (
	"flashbets/amm"
	ferrors "flashbets/core/errors"
	"flashbets/fixedpoint"
)

// Market holds the L2-norm constrained weight vector for one market.
type Market struct {
	k fixedpoint.FP128
	f []fixedpoint.FP128
}

// New constructs an L2-norm market with numOutcomes weights distributed
// uniformly so the initial vector already satisfies ||f||_2 = k.
func New(k fixedpoint.FP128, numOutcomes int) (*Market, error) {
	if numOutcomes < 2 {
		return nil, ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	if k.IsZero() {
		return nil, ferrors.Validation(ferrors.ErrInvalidInput)
	}
	n := fixedpoint.FP128FromUint64(uint64(numOutcomes))
	sqrtN, err := fixedpoint.Sqrt(n)
	if err != nil {
		return nil, err
	}
	uniform, err := k.Div(sqrtN)
	if err != nil {
		return nil, err
	}
	f := make([]fixedpoint.FP128, numOutcomes)
	for i := range f {
		f[i] = uniform
	}
	return &Market{k: k, f: f}, nil
}

func (m *Market) Kind() amm.Kind { return amm.KindL2Norm }

// norm returns the current L2 norm of f.
func (m *Market) norm() (fixedpoint.FP128, error) {
	sumSq := fixedpoint.Zero128()
	for _, fi := range m.f {
		sq, err := fi.Mul(fi)
		if err != nil {
			return fixedpoint.FP128{}, err
		}
		sumSq, err = sumSq.Add(sq)
		if err != nil {
			return fixedpoint.FP128{}, err
		}
	}
	return fixedpoint.Sqrt(sumSq)
}

// Price returns f_i^2/k^2, the squared-share price of outcome i.
func (m *Market) Price(outcome int) (fixedpoint.FP128, error) {
	if outcome < 0 || outcome >= len(m.f) {
		return fixedpoint.FP128{}, ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	fi2, err := m.f[outcome].Mul(m.f[outcome])
	if err != nil {
		return fixedpoint.FP128{}, err
	}
	k2, err := m.k.Mul(m.k)
	if err != nil {
		return fixedpoint.FP128{}, err
	}
	return fi2.Div(k2)
}

func (m *Market) AllPrices() ([]fixedpoint.FP128, error) {
	k2, err := m.k.Mul(m.k)
	if err != nil {
		return nil, err
	}
	prices := make([]fixedpoint.FP128, len(m.f))
	for i, fi := range m.f {
		fi2, err := fi.Mul(fi)
		if err != nil {
			return nil, err
		}
		prices[i], err = fi2.Div(k2)
		if err != nil {
			return nil, err
		}
	}
	return prices, nil
}

// maxRescalePasses bounds clampThenRescale's clamp/rescale loop: rescaling
// can push a weight that was within [0,k] before scaling back out past k
// (whenever scale>1), which the next pass's clamp must catch, so one clamp
// and one rescale is not always enough to land back on the constraint
// surface with every weight in bounds.
const maxRescalePasses = 10

// clampThenRescale clamps every weight into [0,k] (a single outcome can
// never legitimately claim more than the market's entire norm budget), then
// rescales the vector back onto the ||f||_2 = k constraint surface,
// repeating until a pass needs no further clamping or the pass budget runs
// out.
func (m *Market) clampThenRescale() error {
	for pass := 0; pass < maxRescalePasses; pass++ {
		for i, fi := range m.f {
			if fi.LessThan(fixedpoint.Zero128()) {
				m.f[i] = fixedpoint.Zero128()
			} else if fi.GreaterThan(m.k) {
				m.f[i] = m.k
			}
		}
		norm, err := m.norm()
		if err != nil {
			return err
		}
		if norm.IsZero() {
			return ferrors.Pricing(ferrors.ErrConvergenceFailed)
		}
		scale, err := m.k.Div(norm)
		if err != nil {
			return err
		}
		stable := true
		for i, fi := range m.f {
			scaled, err := fi.Mul(scale)
			if err != nil {
				return err
			}
			if scaled.GreaterThan(m.k) {
				stable = false
			}
			m.f[i] = scaled
		}
		if stable {
			return nil
		}
	}
	return ferrors.Pricing(ferrors.ErrConvergenceFailed)
}

// Quote returns the trapezoidal cost of moving shares into outcome's
// weight, evaluated against the pre- and post-trade prices.
func (m *Market) Quote(outcome int, shares fixedpoint.Signed128) (fixedpoint.Signed128, error) {
	if outcome < 0 || outcome >= len(m.f) {
		return fixedpoint.Signed128{}, ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	priceBefore, err := m.Price(outcome)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}

	trial := &Market{k: m.k, f: append([]fixedpoint.FP128(nil), m.f...)}
	if err := trial.perturb(outcome, shares); err != nil {
		return fixedpoint.Signed128{}, err
	}

	priceAfter, err := trial.Price(outcome)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	avg, err := priceBefore.Add(priceAfter)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	avg, err = avg.Div(fixedpoint.FP128FromUint64(2))
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	costMag, err := avg.Mul(shares.Mag)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	return fixedpoint.Signed128{Mag: costMag, Neg: shares.Neg}, nil
}

func (m *Market) perturb(outcome int, shares fixedpoint.Signed128) error {
	var updated fixedpoint.FP128
	var err error
	if shares.Neg {
		updated, err = m.f[outcome].Sub(shares.Mag)
		if err != nil {
			updated = fixedpoint.Zero128()
			err = nil
		}
	} else {
		updated, err = m.f[outcome].Add(shares.Mag)
	}
	if err != nil {
		return err
	}
	m.f[outcome] = updated
	return m.clampThenRescale()
}

// Apply commits shares to outcome's weight and restores the norm invariant.
func (m *Market) Apply(outcome int, shares fixedpoint.Signed128) error {
	if outcome < 0 || outcome >= len(m.f) {
		return ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	return m.perturb(outcome, shares)
}

// Weights exposes a copy of the internal weight vector for snapshots.
func (m *Market) Weights() []fixedpoint.FP128 {
	return append([]fixedpoint.FP128(nil), m.f...)
}
