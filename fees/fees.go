// Package fees computes the elastic taker fee and its vault/rewards/burn
// split. Grounded on elastic_fee.rs's calculate_elastic_fee formula
// (fee_bps = clamp(FEE_BASE + FEE_SLOPE*exp(-3*coverage), FEE_BASE,
// FEE_MAX)), with the Taylor-series approximation there replaced by this
// engine's general-purpose fixedpoint.ExpNeg so the same domain-reduced,
// 16-term series backs every exponential in the codebase instead of a
// fee-specific one.
package fees

import (
	"flashbets/core"
	ferrors "flashbets/core/errors"
	"flashbets/fixedpoint"
)

// Config holds the elastic fee curve's tunables, sourced from FEE_BASE,
// FEE_SLOPE, and FEE_MAX.
type Config struct {
	BaseBps  uint32
	SlopeBps uint32
	MaxBps   uint32
}

// DefaultConfig matches the documented defaults: 3/25/28 bps.
func DefaultConfig() Config {
	return Config{BaseBps: 3, SlopeBps: 25, MaxBps: 28}
}

// Split is the fixed 70/20/10 vault/rewards/burn allocation every collected
// fee is divided into; the three shares are invariant-checked to sum to
// exactly 10000 bps.
type Split struct {
	VaultBps   uint32
	RewardsBps uint32
	BurnBps    uint32
}

// DefaultSplit is the 70/20/10 split mandated by §4.8.
func DefaultSplit() Split {
	return Split{VaultBps: 7000, RewardsBps: 2000, BurnBps: 1000}
}

func (s Split) validate() error {
	if uint64(s.VaultBps)+uint64(s.RewardsBps)+uint64(s.BurnBps) != 10000 {
		return ferrors.Validation(ferrors.ErrInvalidInput)
	}
	return nil
}

// Engine quotes the elastic taker fee and splits it across the vault,
// rewards treasury, and burn buckets.
type Engine struct {
	cfg   Config
	split Split
}

// New constructs a fee engine from the shared engine parameters, validating
// that the 70/20/10 split sums to 10000 bps.
func New(p *core.Params) (*Engine, error) {
	cfg := Config{BaseBps: p.FeeBaseBps, SlopeBps: p.FeeSlopeBps, MaxBps: p.FeeMaxBps}
	split := DefaultSplit()
	if err := split.validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, split: split}, nil
}

// QuoteBps returns fee_bps = clamp(BASE + SLOPE*exp(-3*coverage), BASE, MAX).
// Monotonically non-increasing in coverage: the exponential term shrinks as
// coverage rises, so fee_bps(coverage1) >= fee_bps(coverage2) whenever
// coverage1 < coverage2, which is exactly the monotonicity property AMMs
// and the fee-quoting path depend on.
func (e *Engine) QuoteBps(coverage fixedpoint.FP64) (uint32, error) {
	if coverage.IsZero() {
		return 0, ferrors.Validation(ferrors.ErrInvalidInput)
	}
	coverage128 := coverage.ToFP128()
	three := fixedpoint.FP128FromUint64(3)
	exponent, err := three.Mul(coverage128)
	if err != nil {
		return 0, err
	}
	// Past Exp's 64.0 bound (including the Max64 coverage an empty vault
	// reports) SLOPE*exp(-exponent) is below 1e-18 bps, so the term is left
	// at zero and the truncated fee comes out as BASE exactly.
	expTerm := fixedpoint.Zero128()
	if !exponent.GreaterThan(fixedpoint.FP128FromUint64(64)) {
		expTerm, err = fixedpoint.ExpNeg(exponent)
		if err != nil {
			return 0, err
		}
	}

	slope := fixedpoint.FP128FromUint64(uint64(e.cfg.SlopeBps))
	slopeContribution, err := slope.Mul(expTerm)
	if err != nil {
		return 0, err
	}
	base := fixedpoint.FP128FromUint64(uint64(e.cfg.BaseBps))
	total, err := base.Add(slopeContribution)
	if err != nil {
		return 0, err
	}

	feeBps := uint32(total.Float64())
	if feeBps < e.cfg.BaseBps {
		feeBps = e.cfg.BaseBps
	}
	if feeBps > e.cfg.MaxBps {
		feeBps = e.cfg.MaxBps
	}
	return feeBps, nil
}

// Apply computes the fee owed on notional at the given coverage, then
// divides it into the vault/rewards/burn split.
func (e *Engine) Apply(notional fixedpoint.FP64, coverage fixedpoint.FP64) (Allocation, error) {
	feeBps, err := e.QuoteBps(coverage)
	if err != nil {
		return Allocation{}, err
	}
	feeBpsFP, err := fixedpoint.FP64FromFloat64(float64(feeBps) / 10000.0)
	if err != nil {
		return Allocation{}, err
	}
	total, err := notional.Mul(feeBpsFP)
	if err != nil {
		return Allocation{}, err
	}

	vaultShare, err := bpsOf(total, e.split.VaultBps)
	if err != nil {
		return Allocation{}, err
	}
	rewardsShare, err := bpsOf(total, e.split.RewardsBps)
	if err != nil {
		return Allocation{}, err
	}
	burnShare, err := bpsOf(total, e.split.BurnBps)
	if err != nil {
		return Allocation{}, err
	}
	return Allocation{
		Total:   total,
		Vault:   vaultShare,
		Rewards: rewardsShare,
		Burn:    burnShare,
		FeeBps:  feeBps,
	}, nil
}

// Rebate returns rebateBps of notional as a maker rebate amount. It does not
// check whether the trade improved the spread and moves no funds: nothing is
// drawn from the rewards bucket.
func (e *Engine) Rebate(notional fixedpoint.FP64, rebateBps uint32) (fixedpoint.FP64, error) {
	return bpsOf(notional, rebateBps)
}

// Allocation is the result of splitting a collected fee.
type Allocation struct {
	Total   fixedpoint.FP64
	Vault   fixedpoint.FP64
	Rewards fixedpoint.FP64
	Burn    fixedpoint.FP64
	FeeBps  uint32
}

func bpsOf(amount fixedpoint.FP64, bps uint32) (fixedpoint.FP64, error) {
	ratio, err := fixedpoint.FP64FromFloat64(float64(bps) / 10000.0)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	return amount.Mul(ratio)
}
