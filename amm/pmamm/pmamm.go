// Package pmamm implements the binary prediction-market AMM used for
// two-outcome markets and for 3-64 outcome markets with a discrete (not
// continuous) outcome type. Unlike LMSR's closed-form cost function, the
// pm-AMM state variable x only has a closed-form *price* (the standard
// normal CDF of x/b); moving x to match a target trade size requires
// solving Φ(x_new/b) - Φ(x_old/b) = shares/b for x_new, which has no closed
// form and is solved by Newton-Raphson, grounded on the time-decayed
// liquidity term in math.rs's calculate_pmamm_price (here b plays the role
// of that function's liquidity_parameter scaled by the time_factor) paired
// with the Newton solver pmAMM literature describes for the Gaussian
// reserve curve.
//
// Market models a single binary market: Price, Quote, and Apply accept only
// outcomes 0 and 1, and any other outcome index fails with InvalidOutcome,
// including on a 3-64 outcome market routed here.
package pmamm

import (
	"flashbets/amm"
	ferrors "flashbets/core/errors"
	"flashbets/fixedpoint"
)

// defaultMaxIters and defaultHardIters match §6's documented PM_AMM_MAX_ITERS
// and PM_AMM_HARD_ITERS, used until a caller wires real engine parameters in
// via SetIterCaps.
const (
	defaultMaxIters  = 5
	defaultHardIters = 10
	// newtonTolerance is the relative-residual convergence threshold
	// solveNewton targets before the soft iteration budget runs out.
	newtonTolerance = 1e-8
)

// Market holds pm-AMM state for a single binary market: x is the signed
// state variable, sigma is the base liquidity, and tau/elapsed drive the
// time-decayed effective liquidity b = sigma*sqrt(tau-elapsed).
type Market struct {
	sigma   fixedpoint.FP128
	tau     fixedpoint.FP128
	elapsed fixedpoint.FP128
	x       fixedpoint.Signed128

	maxIters  int
	hardIters int
}

// New constructs a pm-AMM market centered at x=0 (50/50 price).
func New(sigma, tau fixedpoint.FP128) (*Market, error) {
	if sigma.IsZero() || tau.IsZero() {
		return nil, ferrors.Validation(ferrors.ErrInvalidInput)
	}
	return &Market{sigma: sigma, tau: tau, maxIters: defaultMaxIters, hardIters: defaultHardIters}, nil
}

// SetIterCaps overrides the Newton solver's soft and hard iteration budgets
// from the shared engine parameters (PMAMMMaxIters/PMAMMHardIters).
func (m *Market) SetIterCaps(maxIters, hardIters int) { m.maxIters = maxIters; m.hardIters = hardIters }

func (m *Market) Kind() amm.Kind { return amm.KindPMAMM }

// Advance moves the market's clock forward by elapsed, shrinking effective
// liquidity and therefore sharpening price sensitivity as resolution nears.
func (m *Market) Advance(elapsed fixedpoint.FP128) error {
	if elapsed.GreaterThan(m.tau) {
		return ferrors.Validation(ferrors.ErrInvalidInput)
	}
	m.elapsed = elapsed
	return nil
}

// effectiveB returns b = sigma*sqrt(tau-elapsed), floored away from zero so
// price never becomes a divide-by-zero as the market approaches expiry.
func (m *Market) effectiveB() (fixedpoint.FP128, error) {
	remaining, err := m.tau.Sub(m.elapsed)
	if err != nil {
		return fixedpoint.FP128{}, err
	}
	if remaining.IsZero() {
		remaining, err = fixedpoint.FP128FromFloat64(1e-6)
		if err != nil {
			return fixedpoint.FP128{}, err
		}
	}
	sqrtRemaining, err := fixedpoint.Sqrt(remaining)
	if err != nil {
		return fixedpoint.FP128{}, err
	}
	return m.sigma.Mul(sqrtRemaining)
}

// Price returns Φ(x/b) for outcome 1 ("yes") and Φ(-x/b) for outcome 0
// ("no"), the two-outcome specialization of the normal-kernel price.
func (m *Market) Price(outcome int) (fixedpoint.FP128, error) {
	if outcome != 0 && outcome != 1 {
		return fixedpoint.FP128{}, ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	b, err := m.effectiveB()
	if err != nil {
		return fixedpoint.FP128{}, err
	}
	z, err := m.x.Div(b)
	if err != nil {
		return fixedpoint.FP128{}, err
	}
	if outcome == 0 {
		z = fixedpoint.Signed128{Mag: z.Mag, Neg: !z.Neg}
	}
	return standardNormalCDF(z)
}

func (m *Market) AllPrices() ([]fixedpoint.FP128, error) {
	yes, err := m.Price(1)
	if err != nil {
		return nil, err
	}
	no, err := m.Price(0)
	if err != nil {
		return nil, err
	}
	return []fixedpoint.FP128{no, yes}, nil
}

// Quote solves for the x that satisfies Φ(x_new/b) - Φ(x_old/b) = shares/b
// via Newton-Raphson (f(x) = Φ(x/b) - target, f'(x) = φ(x/b)/b) and returns
// the trade's signed cost as the trapezoidal average of the before/after
// "yes" price times the share size, which is exact in the limit of small
// steps and a standard approximation otherwise.
func (m *Market) Quote(outcome int, shares fixedpoint.Signed128) (fixedpoint.Signed128, error) {
	if outcome != 0 && outcome != 1 {
		return fixedpoint.Signed128{}, ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	if shares.IsZero() {
		return fixedpoint.Signed128{}, ferrors.Validation(ferrors.ErrInvalidInput)
	}

	b, err := m.effectiveB()
	if err != nil {
		return fixedpoint.Signed128{}, err
	}

	// Selling outcome 0 is buying outcome 1 in the opposite direction.
	signedShares := shares
	if outcome == 0 {
		signedShares = fixedpoint.Signed128{Mag: shares.Mag, Neg: !shares.Neg}
	}

	priceBefore, err := m.Price(1)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}

	target, err := signedShares.Div(b)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}

	xNew, err := solveNewton(m.x, b, priceBefore, target, m.maxIters, m.hardIters)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}

	zNew, err := xNew.Div(b)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	priceAfter, err := standardNormalCDF(zNew)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}

	avgPrice, err := priceBefore.Add(priceAfter)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	avgPrice, err = avgPrice.Div(fixedpoint.FP128FromUint64(2))
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	costMag, err := avgPrice.Mul(shares.Mag)
	if err != nil {
		return fixedpoint.Signed128{}, err
	}
	// A sell (shares.Neg) returns proceeds regardless of which outcome side
	// it is on, so the cost's sign simply follows the requested trade's sign.
	return fixedpoint.Signed128{Mag: costMag, Neg: shares.Neg}, nil
}

// Apply commits a previously quoted trade by re-solving for the new state
// variable and storing it.
func (m *Market) Apply(outcome int, shares fixedpoint.Signed128) error {
	if outcome != 0 && outcome != 1 {
		return ferrors.Validation(ferrors.ErrInvalidOutcome)
	}
	b, err := m.effectiveB()
	if err != nil {
		return err
	}
	signedShares := shares
	if outcome == 0 {
		signedShares = fixedpoint.Signed128{Mag: shares.Mag, Neg: !shares.Neg}
	}
	priceBefore, err := m.Price(1)
	if err != nil {
		return err
	}
	target, err := signedShares.Div(b)
	if err != nil {
		return err
	}
	xNew, err := solveNewton(m.x, b, priceBefore, target, m.maxIters, m.hardIters)
	if err != nil {
		return err
	}
	m.x = xNew
	return nil
}

// solveNewton finds x such that Φ(x/b) - priceBefore = target, within
// newtonTolerance's relative residual. It runs at full Newton steps through
// maxIters; if the residual still hasn't converged by then, it damps the
// step to curb overshoot on a slow-converging root and keeps going through
// hardIters. A root that still hasn't converged by hardIters fails outright
// rather than committing a trade priced off a non-converged state variable.
func solveNewton(x0 fixedpoint.Signed128, b, priceBefore fixedpoint.FP128, target fixedpoint.Signed128, maxIters, hardIters int) (fixedpoint.Signed128, error) {
	x := x0
	for i := 0; i < hardIters; i++ {
		z, err := x.Div(b)
		if err != nil {
			return fixedpoint.Signed128{}, err
		}
		cdf, err := standardNormalCDF(z)
		if err != nil {
			return fixedpoint.Signed128{}, err
		}
		diff, err := cdf.Sub(priceBefore)
		diffNeg := false
		if err != nil {
			diff, err = priceBefore.Sub(cdf)
			if err != nil {
				return fixedpoint.Signed128{}, err
			}
			diffNeg = true
		}
		fMag, fNeg, err := subSigned(diff, diffNeg, target.Mag, target.Neg)
		if err != nil {
			return fixedpoint.Signed128{}, err
		}
		if fMag.Float64() < newtonTolerance {
			return x, nil
		}

		pdf, err := standardNormalPDF(z)
		if err != nil {
			return fixedpoint.Signed128{}, err
		}
		derivative, err := pdf.Div(b)
		if err != nil {
			return fixedpoint.Signed128{}, err
		}
		if derivative.IsZero() {
			return fixedpoint.Signed128{}, ferrors.Pricing(ferrors.ErrConvergenceFailed)
		}
		stepMag, err := fMag.Div(derivative)
		if err != nil {
			return fixedpoint.Signed128{}, err
		}
		if i >= maxIters {
			halved, err := stepMag.Div(fixedpoint.FP128FromUint64(2))
			if err != nil {
				return fixedpoint.Signed128{}, err
			}
			stepMag = halved
		}
		x, err = x.Sub(fixedpoint.Signed128{Mag: stepMag, Neg: fNeg})
		if err != nil {
			return fixedpoint.Signed128{}, err
		}
	}
	return fixedpoint.Signed128{}, ferrors.Pricing(ferrors.ErrConvergenceFailed)
}

func subSigned(aMag fixedpoint.FP128, aNeg bool, bMag fixedpoint.FP128, bNeg bool) (fixedpoint.FP128, bool, error) {
	a := fixedpoint.Signed128{Mag: aMag, Neg: aNeg}
	b := fixedpoint.Signed128{Mag: bMag, Neg: bNeg}
	r, err := a.Sub(b)
	if err != nil {
		return fixedpoint.FP128{}, false, err
	}
	return r.Mag, r.Neg, nil
}
