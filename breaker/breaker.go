// Package breaker implements the per-verse circuit breaker: a four-state
// machine (Normal, Halted, Cooldown, EmergencyShutdown) that gates which
// instructions a market group may process. Grounded on nhbchain's
// native/common PauseView/Guard pattern, generalized from a single boolean
// pause flag to the stateful transition table in §4.9.
package breaker

import (
	"flashbets/core"
	ferrors "flashbets/core/errors"
	"flashbets/core/events"
	"flashbets/fixedpoint"
)

// State is a verse's circuit-breaker state.
type State int

const (
	StateNormal State = iota
	StateHalted
	StateCooldown
	StateEmergencyShutdown
)

func (s State) String() string {
	switch s {
	case StateHalted:
		return "halted"
	case StateCooldown:
		return "cooldown"
	case StateEmergencyShutdown:
		return "emergency_shutdown"
	default:
		return "normal"
	}
}

// Reason names why a verse tripped into Halted.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonLowCoverage
	ReasonPriceMove
	ReasonLiquidationVolume
	ReasonFailedTxRate
	ReasonOracleHaltedSpread
)

func (r Reason) String() string {
	switch r {
	case ReasonLowCoverage:
		return "low_coverage"
	case ReasonPriceMove:
		return "price_move"
	case ReasonLiquidationVolume:
		return "liquidation_volume"
	case ReasonFailedTxRate:
		return "failed_tx_rate"
	case ReasonOracleHaltedSpread:
		return "oracle_halted_spread"
	default:
		return "none"
	}
}

// Thresholds holds the trip conditions, sourced from the engine
// configuration.
type Thresholds struct {
	MinCoverage              fixedpoint.FP64
	MaxPriceMoveBps          uint32
	PriceMoveWindowSlots     uint64
	LiquidationVolumeLimit   fixedpoint.FP64
	FailedTxRateLimit        fixedpoint.FP64
	HaltedSpreadGraceSlots   uint64
	CooldownSlots            uint64
	CooldownGraceSlots       uint64
}

// DefaultThresholds matches §4.9's documented defaults.
func DefaultThresholds() (Thresholds, error) {
	minCoverage, err := fixedpoint.FP64FromFloat64(0.5)
	if err != nil {
		return Thresholds{}, err
	}
	return Thresholds{
		MinCoverage:            minCoverage,
		MaxPriceMoveBps:        500,
		PriceMoveWindowSlots:   4,
		HaltedSpreadGraceSlots: 2,
		CooldownGraceSlots:     1,
	}, nil
}

// ThresholdsFromParams derives Thresholds from the shared engine parameters,
// leaving the grace-period fields at their small documented constants since
// §4.9 never exposes those as tunables.
func ThresholdsFromParams(p *core.Params) Thresholds {
	return Thresholds{
		MinCoverage:            p.CircuitMinCoverage,
		MaxPriceMoveBps:        p.CircuitPriceMoveBps,
		PriceMoveWindowSlots:   p.CircuitPriceMoveSlots,
		CooldownSlots:          p.CircuitHaltDurationSlots,
		HaltedSpreadGraceSlots: 2,
		CooldownGraceSlots:     1,
	}
}

// Breaker is one verse's circuit-breaker state machine.
type Breaker struct {
	thresholds Thresholds

	verseID    [32]byte
	state      State
	reason     Reason
	resumeSlot uint64
	emitter    events.Emitter

	spreadHaltedSinceSlot uint64
	spreadHalted          bool
}

// New constructs a breaker starting in Normal state from the shared engine
// parameters.
func New(p *core.Params) *Breaker {
	return &Breaker{thresholds: ThresholdsFromParams(p), state: StateNormal, emitter: events.NoopEmitter{}}
}

// NewWithThresholds constructs a breaker from explicit thresholds, bypassing
// core.Params; used by tests that exercise specific trip boundaries.
func NewWithThresholds(thresholds Thresholds) *Breaker {
	return &Breaker{thresholds: thresholds, state: StateNormal, emitter: events.NoopEmitter{}}
}

// SetVerseID tags this breaker's verse for the events it emits.
func (b *Breaker) SetVerseID(id [32]byte) { b.verseID = id }

// SetEmitter attaches an event sink for Normal->Halted transitions.
func (b *Breaker) SetEmitter(e events.Emitter) { b.emitter = e }

func (b *Breaker) State() State          { return b.state }
func (b *Breaker) Reason() Reason        { return b.reason }
func (b *Breaker) ResumeSlot() uint64    { return b.resumeSlot }

// Sample is one slot's worth of signals evaluated against the trip
// conditions.
type Sample struct {
	Coverage              fixedpoint.FP64
	PriceMoveBps          uint32
	LiquidationVolume     fixedpoint.FP64
	FailedTxRate          fixedpoint.FP64
	OracleHaltedSpread    bool
	CurrentSlot           uint64
}

// Evaluate runs the Normal->Halted trip conditions, the Halted->Cooldown
// and Cooldown->Normal recovery transitions, and the HaltedSpread-grace
// tracking, per §4.9. It is a no-op while EmergencyShutdown is active,
// since only the authorized key can leave that state.
func (b *Breaker) Evaluate(sample Sample) {
	if sample.OracleHaltedSpread {
		if !b.spreadHalted {
			b.spreadHalted = true
			b.spreadHaltedSinceSlot = sample.CurrentSlot
		}
	} else {
		b.spreadHalted = false
	}

	switch b.state {
	case StateNormal:
		b.evaluateTrip(sample)
	case StateHalted:
		if sample.CurrentSlot >= b.resumeSlot {
			b.state = StateCooldown
			b.resumeSlot = sample.CurrentSlot + b.thresholds.CooldownGraceSlots
		}
	case StateCooldown:
		if sample.CurrentSlot >= b.resumeSlot {
			b.state = StateNormal
			b.reason = ReasonNone
		}
	case StateEmergencyShutdown:
		// Only ForceNormal (the authorized key) may exit this state.
	}
}

func (b *Breaker) evaluateTrip(sample Sample) {
	trip := func(reason Reason, haltSlots uint64) {
		b.state = StateHalted
		b.reason = reason
		b.resumeSlot = sample.CurrentSlot + haltSlots
		b.emitter.Emit(events.CircuitBreakerTripped{
			VerseID:    b.verseID,
			Reason:     reason.String(),
			ResumeSlot: b.resumeSlot,
		})
	}

	if !b.thresholds.MinCoverage.IsZero() && sample.Coverage.LessThan(b.thresholds.MinCoverage) {
		trip(ReasonLowCoverage, b.thresholds.CooldownSlots)
		return
	}
	if sample.PriceMoveBps >= b.thresholds.MaxPriceMoveBps {
		trip(ReasonPriceMove, b.thresholds.CooldownSlots)
		return
	}
	if !b.thresholds.LiquidationVolumeLimit.IsZero() && sample.LiquidationVolume.GreaterThan(b.thresholds.LiquidationVolumeLimit) {
		trip(ReasonLiquidationVolume, b.thresholds.CooldownSlots)
		return
	}
	if !b.thresholds.FailedTxRateLimit.IsZero() && sample.FailedTxRate.GreaterThan(b.thresholds.FailedTxRateLimit) {
		trip(ReasonFailedTxRate, b.thresholds.CooldownSlots)
		return
	}
	if b.spreadHalted && sample.CurrentSlot-b.spreadHaltedSinceSlot > b.thresholds.HaltedSpreadGraceSlots {
		trip(ReasonOracleHaltedSpread, b.thresholds.CooldownSlots)
		return
	}
}

// Shutdown forces EmergencyShutdown, only callable via an authorized
// emergency key at the host layer.
func (b *Breaker) Shutdown() {
	b.state = StateEmergencyShutdown
	b.reason = ReasonNone
}

// ForceNormal lifts an EmergencyShutdown, only callable via the same
// authorized emergency key.
func (b *Breaker) ForceNormal() {
	b.state = StateNormal
	b.reason = ReasonNone
}

// InstructionKind distinguishes the instruction classes Guard gates.
type InstructionKind int

const (
	InstructionTrade InstructionKind = iota
	InstructionClose
	InstructionLiquidation
	InstructionOracleUpdate
)

// Guard rejects an instruction that the verse's current state disallows.
// While Halted or in Cooldown, only closes, liquidations, and oracle
// updates proceed. EmergencyShutdown disables trading but still permits
// close and liquidation, same as Halted/Cooldown.
func (b *Breaker) Guard(kind InstructionKind) error {
	if b.state == StateNormal {
		return nil
	}
	switch kind {
	case InstructionClose, InstructionLiquidation, InstructionOracleUpdate:
		return nil
	default:
		return ferrors.Risk(ferrors.ErrCircuitBreakerTripped)
	}
}
