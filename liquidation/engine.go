// Package liquidation implements the partial-liquidation engine: a
// per-market, per-slot accumulator bounding how much open interest may be
// unwound in a single slot, priority ordering across candidate positions,
// and the keeper-reward/vault-remainder payout split. Grounded on
// nhbchain's native/common quota.go epoch-counter shape (reset-on-epoch-
// change, reject-over-cap), adapted from a persisted per-address quota to
// an in-memory per-market-per-slot notional cap.
package liquidation

import (
	"encoding/hex"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"flashbets/breaker"
	"flashbets/core"
	ferrors "flashbets/core/errors"
	"flashbets/core/events"
	"flashbets/fixedpoint"
	"flashbets/native/common"
	"flashbets/observability/logging"
	"flashbets/observability/metrics"
	"flashbets/position"
	"flashbets/vault"
)

// Config holds the liquidation sizing tunables: LIQ_MIN, LIQ_MAX, SIGMA,
// and the keeper reward share, all sourced from the engine configuration.
type Config struct {
	MinBps    uint32 // LIQ_MIN, 2%
	MaxBps    uint32 // LIQ_MAX, 8%
	Sigma     fixedpoint.FP64
	KeeperBps uint32 // 5 bps of liquidated notional
	// EpsBuffer widens the health check slightly to prevent chatter at the
	// exact liquidation boundary.
	EpsBuffer fixedpoint.FP64
}

// marketAccumulator tracks how much notional has been liquidated in a
// market during the current slot.
type marketAccumulator struct {
	slot uint64
	used fixedpoint.FP64
}

// Engine mediates liquidation across every market, enforcing the per-slot
// cap independently per market.
type Engine struct {
	cfg          Config
	vault        *vault.Vault
	positions    *position.Manager
	accumulators map[[16]byte]*marketAccumulator
	emitter      events.Emitter
	breakers     *breaker.Registry
	logger       *slog.Logger
	metrics      *metrics.Registry

	keeperLimitersMu sync.Mutex
	keeperLimiters   map[string]*rate.Limiter

	quota      common.Quota
	quotaStore *epochQuotaStore
}

// KeeperBurst and KeeperPerSecond bound how often a single keeper address
// may submit liquidation attempts, independent of the per-market notional
// cap: a keeper spamming unhealthy-looking candidates shouldn't starve
// other keepers' requests even when the market-level quota still has room.
const (
	KeeperPerSecond = 5
	KeeperBurst     = 10
)

// New constructs a liquidation engine bound to the shared vault and
// position manager, from the shared engine parameters.
func New(p *core.Params, v *vault.Vault, pm *position.Manager) *Engine {
	cfg := Config{MinBps: p.LiqMinBps, MaxBps: p.LiqMaxBps, Sigma: p.Sigma, KeeperBps: p.LiqKeeperBps, EpsBuffer: p.LiqEpsBuffer}
	return &Engine{
		cfg:            cfg,
		vault:          v,
		positions:      pm,
		accumulators:   make(map[[16]byte]*marketAccumulator),
		keeperLimiters: make(map[string]*rate.Limiter),
		emitter:        events.NoopEmitter{},
		quota:          common.Quota{MaxRequestsPerMin: p.LiqKeeperMaxReqPerEpoch, EpochSeconds: uint32(p.LiqKeeperEpochSlots)},
		quotaStore:     newEpochQuotaStore(),
	}
}

// SetEmitter attaches an event sink for liquidation draws.
func (e *Engine) SetEmitter(emitter events.Emitter) { e.emitter = emitter }

// SetBreakers attaches the per-verse circuit-breaker registry; nil-safe.
func (e *Engine) SetBreakers(r *breaker.Registry) { e.breakers = r }

// SetLogger attaches a structured logger; nil-safe.
func (e *Engine) SetLogger(l *slog.Logger) { e.logger = l }

// SetMetrics attaches the process-wide metrics registry; nil-safe.
func (e *Engine) SetMetrics(m *metrics.Registry) { e.metrics = m }

// limiterFor returns the per-keeper token bucket, creating it on first use.
func (e *Engine) limiterFor(keeper string) *rate.Limiter {
	e.keeperLimitersMu.Lock()
	defer e.keeperLimitersMu.Unlock()
	lim, ok := e.keeperLimiters[keeper]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(KeeperPerSecond), KeeperBurst)
		e.keeperLimiters[keeper] = lim
	}
	return lim
}

// LiquidateAsKeeper rate-limits a keeper's liquidation submissions before
// delegating to Liquidate, so a single address cannot monopolize a market's
// per-slot quota with repeated attempts against the same or neighboring
// candidates.
func (e *Engine) LiquidateAsKeeper(keeper string, id uint64, mark fixedpoint.FP64, coverage fixedpoint.FP64, marketSigma fixedpoint.FP64, marketTotalOI fixedpoint.FP64, currentSlot uint64) (Result, error) {
	if !e.limiterFor(keeper).Allow() {
		return Result{}, ferrors.Resource(ferrors.ErrRateLimitExceeded)
	}
	epoch := currentSlot / keeperQuotaEpochSlots(e.quota)
	if _, err := common.Apply(e.quotaStore, "liquidation", epoch, []byte(keeper), e.quota, 1, 0); err != nil {
		logging.Info(e.logger, "keeper liquidation quota exhausted", "keeper", keeper, "epoch", epoch)
		return Result{}, ferrors.Resource(ferrors.ErrRateLimitExceeded)
	}
	return e.liquidate(keeper, id, mark, coverage, marketSigma, marketTotalOI, currentSlot)
}

// keeperQuotaEpochSlots guards against a zero EpochSeconds (an
// unconfigured quota) dividing by zero; a quota with no configured window
// is effectively a single, ever-growing epoch.
func keeperQuotaEpochSlots(q common.Quota) uint64 {
	if q.EpochSeconds == 0 {
		return 1
	}
	return uint64(q.EpochSeconds)
}

// Result summarizes one liquidation call's effect.
type Result struct {
	LiquidatedNotional fixedpoint.FP64
	KeeperReward       fixedpoint.FP64
	VaultRemainder     fixedpoint.FP64
	FullyClosed        bool
}

// Liquidate re-derives the candidate's health at the current mark, sizes
// the liquidatable notional against the market's per-slot accumulator, and
// pays out the keeper/vault split.
func (e *Engine) Liquidate(id uint64, mark fixedpoint.FP64, coverage fixedpoint.FP64, marketSigma fixedpoint.FP64, marketTotalOI fixedpoint.FP64, currentSlot uint64) (Result, error) {
	return e.liquidate("", id, mark, coverage, marketSigma, marketTotalOI, currentSlot)
}

func (e *Engine) liquidate(keeper string, id uint64, mark fixedpoint.FP64, coverage fixedpoint.FP64, marketSigma fixedpoint.FP64, marketTotalOI fixedpoint.FP64, currentSlot uint64) (Result, error) {
	p, ok := e.positions.Get(id)
	if !ok {
		return Result{}, ferrors.State(ferrors.ErrPositionClosed)
	}

	if e.breakers != nil {
		if err := e.breakers.Guard(p.VerseID, breaker.InstructionLiquidation); err != nil {
			return Result{}, err
		}
	}

	marginRatio, effLev, err := e.positions.Mark(id, mark)
	if err != nil {
		return Result{}, err
	}
	required, err := e.requiredRatio(coverage, effLev)
	if err != nil {
		return Result{}, err
	}
	if marginRatio.GreaterThan(required) || marginRatio.Equal(required) {
		return Result{}, ferrors.Risk(ferrors.ErrPositionHealthy)
	}

	maxThisSlot, err := e.maxThisSlot(marketSigma, marketTotalOI)
	if err != nil {
		return Result{}, err
	}
	accum := e.accumulatorFor(p.MarketID, currentSlot)

	remaining, err := maxThisSlot.Sub(accum.used)
	if err != nil {
		remaining = fixedpoint.Zero64()
	}
	if remaining.IsZero() {
		return Result{}, ferrors.Resource(ferrors.ErrLiquidationQuotaExhausted)
	}

	notional, err := p.Notional()
	if err != nil {
		return Result{}, err
	}
	liquidated := notional
	if remaining.LessThan(notional) {
		liquidated = remaining
	}

	proportion, err := liquidated.Div(notional)
	if err != nil {
		return Result{}, err
	}

	pnl, err := p.UnrealizedPnL(mark)
	if err != nil {
		return Result{}, err
	}
	pnlPortionMag, err := pnl.Mag.Mul(proportion)
	if err != nil {
		return Result{}, err
	}
	if err := e.vault.RealizePnL(fixedpoint.Signed64{Mag: pnlPortionMag, Neg: pnl.Neg}); err != nil {
		return Result{}, err
	}
	if err := e.vault.DecreaseOI(liquidated); err != nil {
		return Result{}, err
	}

	keeperReward, err := bpsOf(liquidated, e.cfg.KeeperBps)
	if err != nil {
		return Result{}, err
	}
	vaultRemainder, err := liquidated.Sub(keeperReward)
	if err != nil {
		return Result{}, err
	}
	if err := e.vault.PayLiquidation(keeperReward, vaultRemainder); err != nil {
		return Result{}, err
	}

	next, err := accum.used.Add(liquidated)
	if err != nil {
		return Result{}, err
	}
	accum.used = next

	fullyClosed := proportion.Equal(fixedpoint.One64()) || proportion.GreaterThan(fixedpoint.One64())
	if fullyClosed {
		if _, err := e.positions.ClosePosition(id, mark, position.LiquidatedReason); err != nil {
			return Result{}, err
		}
	} else {
		marginReduction, err := p.Margin.Mul(proportion)
		if err != nil {
			return Result{}, err
		}
		reducedMargin, err := p.Margin.Sub(marginReduction)
		if err != nil {
			return Result{}, err
		}
		p.Margin = reducedMargin
		p.LiquidatedThisSlot = liquidated
		p.LiquidatedSlot = currentSlot
	}

	e.emitter.Emit(events.Liquidation{
		PositionID: id,
		Keeper:     keeper,
		Amount:     liquidated,
		Reward:     keeperReward,
	})
	logging.Info(e.logger, "position liquidated", "position_id", id, "keeper", keeper, "notional", liquidated.Float64(), "fully_closed", fullyClosed)
	if e.metrics != nil {
		e.metrics.ObserveLiquidation(hexMarketID(p.MarketID), liquidated.Float64(), keeperReward.Float64())
	}

	return Result{
		LiquidatedNotional: liquidated,
		KeeperReward:       keeperReward,
		VaultRemainder:     vaultRemainder,
		FullyClosed:        fullyClosed,
	}, nil
}

// requiredRatio is 1/(coverage*effective_leverage) + eps_buffer. A
// wiped-out position reports Max64 ("infinite") effective leverage, for
// which the reciprocal term is zero and only eps_buffer remains.
func (e *Engine) requiredRatio(coverage, effLev fixedpoint.FP64) (fixedpoint.FP64, error) {
	if effLev.Equal(fixedpoint.Max64()) {
		return e.cfg.EpsBuffer, nil
	}
	denom, err := coverage.Mul(effLev)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	if denom.IsZero() {
		return fixedpoint.FP64{}, ferrors.Arithmetic(ferrors.ErrDivisionByZero)
	}
	inv, err := fixedpoint.One64().Div(denom)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	return inv.Add(e.cfg.EpsBuffer)
}

// maxThisSlot is clamp(LIQ_MIN, SIGMA*marketSigma, LIQ_MAX) * total_oi.
func (e *Engine) maxThisSlot(marketSigma, totalOI fixedpoint.FP64) (fixedpoint.FP64, error) {
	raw, err := e.cfg.Sigma.Mul(marketSigma)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	minFrac, err := bpsToFraction(e.cfg.MinBps)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	maxFrac, err := bpsToFraction(e.cfg.MaxBps)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	clamped := raw
	if clamped.LessThan(minFrac) {
		clamped = minFrac
	}
	if clamped.GreaterThan(maxFrac) {
		clamped = maxFrac
	}
	return clamped.Mul(totalOI)
}

func (e *Engine) accumulatorFor(marketID [16]byte, currentSlot uint64) *marketAccumulator {
	accum, ok := e.accumulators[marketID]
	if !ok {
		accum = &marketAccumulator{slot: currentSlot}
		e.accumulators[marketID] = accum
		return accum
	}
	if accum.slot != currentSlot {
		accum.slot = currentSlot
		accum.used = fixedpoint.Zero64()
	}
	return accum
}

func hexMarketID(id [16]byte) string {
	return hex.EncodeToString(id[:])
}

func bpsToFraction(bps uint32) (fixedpoint.FP64, error) {
	return fixedpoint.FP64FromFloat64(float64(bps) / 10000.0)
}

func bpsOf(amount fixedpoint.FP64, bps uint32) (fixedpoint.FP64, error) {
	frac, err := bpsToFraction(bps)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	return amount.Mul(frac)
}

// Candidate pairs a position with its freshly-marked health, for priority
// ranking across many simultaneously-liquidatable positions.
type Candidate struct {
	Position    *position.Position
	MarginRatio fixedpoint.FP64
}

// RankCandidates orders liquidation candidates ascending by margin ratio
// (least healthy first), tiebreaking by largest size then oldest
// last_warned_at, per §4.6.
func RankCandidates(candidates []Candidate) []Candidate {
	ranked := append([]Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if !a.MarginRatio.Equal(b.MarginRatio) {
			return a.MarginRatio.LessThan(b.MarginRatio)
		}
		aNotional, _ := a.Position.Notional()
		bNotional, _ := b.Position.Notional()
		if !aNotional.Equal(bNotional) {
			return aNotional.GreaterThan(bNotional)
		}
		return a.Position.LastWarnedAt < b.Position.LastWarnedAt
	})
	return ranked
}
