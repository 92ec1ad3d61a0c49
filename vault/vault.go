// Package vault tracks the single pooled-collateral aggregate the whole
// engine shares, and derives every leverage gate from it. Grounded on
// nhbchain's native/lending Engine — a single mutable aggregate mutated
// only through a narrow method set, never shared by reference into callers
// — generalized from lending's supply/borrow accounting to coverage-based
// leverage gating.
package vault

import (
	"flashbets/core"
	ferrors "flashbets/core/errors"
	"flashbets/core/events"
	"flashbets/fixedpoint"
	"flashbets/observability/metrics"
)

// Tau is the coverage divisor; 0.5 in normal mode, raised to 0.7 during the
// bootstrap phase for conservatism.
type Tau struct {
	Normal    fixedpoint.FP64
	Bootstrap fixedpoint.FP64
}

// DefaultTau matches COVERAGE_TAU's documented defaults.
func DefaultTau() (Tau, error) {
	normal, err := fixedpoint.FP64FromFloat64(0.5)
	if err != nil {
		return Tau{}, err
	}
	bootstrap, err := fixedpoint.FP64FromFloat64(0.7)
	if err != nil {
		return Tau{}, err
	}
	return Tau{Normal: normal, Bootstrap: bootstrap}, nil
}

// Vault is the process-wide singleton collateral pool. All fields are
// unexported; every mutation goes through a named method so the decrease
// causes enumerated in §4.4 stay enforceable in one place.
type Vault struct {
	balance       fixedpoint.FP64
	totalOI       fixedpoint.FP64
	totalBorrowed fixedpoint.FP64
	bootstrap     bool
	tau           Tau
	emitter       events.Emitter
	metrics       *metrics.Registry
}

// New constructs an empty vault in bootstrap mode from the shared engine
// parameters, replacing the package's former ad hoc Tau argument.
func New(p *core.Params) *Vault {
	return &Vault{
		tau:       Tau{Normal: p.CoverageTauNormal, Bootstrap: p.CoverageTauBootstrap},
		bootstrap: true,
		emitter:   events.NoopEmitter{},
	}
}

// SetEmitter attaches an event sink; callers that don't need the append-only
// log can leave the zero-value NoopEmitter in place.
func (v *Vault) SetEmitter(e events.Emitter) { v.emitter = e }

// SetMetrics attaches the process-wide metrics registry; nil-safe, leave
// unset where Prometheus isn't wired up (e.g. unit tests).
func (v *Vault) SetMetrics(m *metrics.Registry) { v.metrics = m }

// emitCoverage reports the vault's current coverage, balance, and total_oi,
// both to the event log and to the coverage/OI/balance gauges. Called after
// every method that changes balance or total_oi.
func (v *Vault) emitCoverage() {
	coverage, err := v.Coverage()
	if err != nil {
		return
	}
	v.emitter.Emit(events.CoverageUpdated{Coverage: coverage, Balance: v.balance, TotalOI: v.totalOI})
	if v.metrics != nil {
		v.metrics.Coverage.WithLabelValues("global").Set(coverage.Float64())
		v.metrics.TotalOI.WithLabelValues("global").Set(v.totalOI.Float64())
		v.metrics.VaultBalance.Set(v.balance.Float64())
	}
}

// Balance, TotalOI, TotalBorrowed expose read-only snapshots.
func (v *Vault) Balance() fixedpoint.FP64       { return v.balance }
func (v *Vault) TotalOI() fixedpoint.FP64       { return v.totalOI }
func (v *Vault) TotalBorrowed() fixedpoint.FP64 { return v.totalBorrowed }
func (v *Vault) Bootstrap() bool                { return v.bootstrap }

// SetBootstrap toggles bootstrap mode, widening or narrowing the coverage
// divisor. Intended for a governance-gated transition, not per-transaction
// use.
func (v *Vault) SetBootstrap(on bool) { v.bootstrap = on }

func (v *Vault) activeTau() fixedpoint.FP64 {
	if v.bootstrap {
		return v.tau.Bootstrap
	}
	return v.tau.Normal
}

// Coverage returns vault_balance / (tau * total_oi). An empty market (zero
// OI) is defined as having infinite coverage, matching the bootstrap-tier
// leverage cap table's "infinite coverage -> 0" bootstrap entry: report the
// maximum representable FP64 rather than dividing by zero.
func (v *Vault) Coverage() (fixedpoint.FP64, error) {
	if v.totalOI.IsZero() {
		return fixedpoint.Max64(), nil
	}
	denom, err := v.activeTau().Mul(v.totalOI)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	if denom.IsZero() {
		return fixedpoint.Max64(), nil
	}
	return v.balance.Div(denom)
}

// Deposit credits the vault with new collateral.
func (v *Vault) Deposit(amount fixedpoint.FP64) error {
	if amount.IsZero() {
		return ferrors.Validation(ferrors.ErrInvalidInput)
	}
	next, err := v.balance.Add(amount)
	if err != nil {
		return err
	}
	v.balance = next
	v.emitCoverage()
	return nil
}

// Withdraw debits the vault, failing InsufficientVaultBalance if the
// balance cannot cover it. Callers are responsible for checking coverage
// policy before calling this (host-level withdrawal gating).
func (v *Vault) Withdraw(amount fixedpoint.FP64) error {
	if amount.IsZero() {
		return ferrors.Validation(ferrors.ErrInvalidInput)
	}
	if v.balance.LessThan(amount) {
		return ferrors.Resource(ferrors.ErrInsufficientVaultBalance)
	}
	next, err := v.balance.Sub(amount)
	if err != nil {
		return err
	}
	v.balance = next
	v.emitCoverage()
	return nil
}

// CreditFee adds a collected fee's vault-bound share to the balance. See
// fees.Engine.Apply for the 70/20/10 allocation feeding this call.
func (v *Vault) CreditFee(vaultShare fixedpoint.FP64) error {
	if vaultShare.IsZero() {
		return nil
	}
	next, err := v.balance.Add(vaultShare)
	if err != nil {
		return err
	}
	v.balance = next
	v.emitCoverage()
	return nil
}

// RealizePnL settles a position close or mark against the vault: a gain is
// paid out of the vault (decrease), a loss is absorbed into it (increase).
func (v *Vault) RealizePnL(pnl fixedpoint.Signed64) error {
	if pnl.IsZero() {
		return nil
	}
	if pnl.Neg {
		next, err := v.balance.Add(pnl.Mag)
		if err != nil {
			return err
		}
		v.balance = next
		v.emitCoverage()
		return nil
	}
	if v.balance.LessThan(pnl.Mag) {
		return ferrors.Resource(ferrors.ErrInsufficientVaultBalance)
	}
	next, err := v.balance.Sub(pnl.Mag)
	if err != nil {
		return err
	}
	v.balance = next
	v.emitCoverage()
	return nil
}

// PayLiquidation pays a keeper reward (an enumerated vault-balance-decrease
// cause) and routes the liquidated remainder into the vault.
func (v *Vault) PayLiquidation(keeperReward fixedpoint.FP64, vaultRemainder fixedpoint.FP64) error {
	if v.balance.LessThan(keeperReward) {
		return ferrors.Resource(ferrors.ErrInsufficientVaultBalance)
	}
	next, err := v.balance.Sub(keeperReward)
	if err != nil {
		return err
	}
	next, err = next.Add(vaultRemainder)
	if err != nil {
		return err
	}
	v.balance = next
	v.emitCoverage()
	return nil
}

// IncreaseOI and DecreaseOI track total open interest as positions open,
// close, or are liquidated.
func (v *Vault) IncreaseOI(notional fixedpoint.FP64) error {
	next, err := v.totalOI.Add(notional)
	if err != nil {
		return err
	}
	v.totalOI = next
	v.emitCoverage()
	return nil
}

func (v *Vault) DecreaseOI(notional fixedpoint.FP64) error {
	if v.totalOI.LessThan(notional) {
		return ferrors.Arithmetic(ferrors.ErrUnderflow)
	}
	next, err := v.totalOI.Sub(notional)
	if err != nil {
		return err
	}
	v.totalOI = next
	v.emitCoverage()
	return nil
}

// IncreaseBorrowed and DecreaseBorrowed track total_borrowed as a chain's
// Borrow step draws down and repays principal.
func (v *Vault) IncreaseBorrowed(amount fixedpoint.FP64) error {
	next, err := v.totalBorrowed.Add(amount)
	if err != nil {
		return err
	}
	v.totalBorrowed = next
	return nil
}

func (v *Vault) DecreaseBorrowed(amount fixedpoint.FP64) error {
	if v.totalBorrowed.LessThan(amount) {
		return ferrors.Arithmetic(ferrors.ErrUnderflow)
	}
	next, err := v.totalBorrowed.Sub(amount)
	if err != nil {
		return err
	}
	v.totalBorrowed = next
	return nil
}
