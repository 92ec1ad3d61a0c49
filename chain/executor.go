// Package chain executes bundled multi-step trades: an ordered list of up
// to five primitive operations (Long, Short, Borrow, Liquidity, Stake,
// Arbitrage) that either all succeed or unwind in reverse. Grounded on
// nhbchain's native/common CPI-depth-guard idiom (one bounded-depth re-entry
// check gating an otherwise ordinary sequential apply), generalized from a
// single guard to the four pre-execution guards §4.7 requires.
package chain

import (
	"log/slog"

	"flashbets/amm"
	"flashbets/breaker"
	"flashbets/core"
	ferrors "flashbets/core/errors"
	"flashbets/core/events"
	"flashbets/core/ids"
	"flashbets/fixedpoint"
	"flashbets/observability/logging"
	"flashbets/position"
	"flashbets/vault"
	"flashbets/verse"
)

// StepKind identifies a chain step's primitive operation.
type StepKind int

const (
	StepLong StepKind = iota
	StepShort
	StepBorrow
	StepLiquidity
	StepStake
	StepArbitrage
)

// State is a chain's place in its lifecycle.
type State int

const (
	StatePending State = iota
	StateActive
	StateUnwinding
	StateCompleted
	StateFailed
	StateLiquidated
)

const (
	maxSteps          = 5
	SafetyBufferSlots = 10
	MaxChainCU        = 45000

	borrowInterestBps    = 500
	liquidityPenaltyBps  = 200
	stakePenaltyBps      = 300
	arbitragePenaltyBps  = 100
	emergencyPenaltyBps  = 1000
)

// Step is one primitive operation in a chain.
type Step struct {
	Kind     StepKind
	Outcome  int
	Leverage int
	Amount   fixedpoint.FP64
	VerseID  verse.ID

	// Engine, OutcomeCount, and MaxLeverage are required for Long/Short
	// steps, which open a position via the market's AMM.
	Engine       amm.Engine
	MarketID     [16]byte
	OutcomeCount int
	MaxLeverage  int
	RiskQuizOK   bool

	// MarketSettleSlot and Writable back the resolution-proximity and
	// writability pre-execution guards.
	MarketSettleSlot uint64
	Writable         bool
	CU               uint64
}

// stepRecord is what Execute remembers about a completed step, enough to
// unwind it.
type stepRecord struct {
	step       Step
	positionID uint64
}

// Chain is a user-owned, ordered sequence of steps.
type Chain struct {
	ID    [16]byte
	Owner string
	Steps []Step
	State State

	completed []stepRecord
}

// NewChain mints a fresh chain id and binds the given owner and steps,
// leaving it in StatePending until Execute runs it.
func NewChain(owner string, steps []Step) *Chain {
	return &Chain{ID: ids.NewChainID(), Owner: owner, Steps: steps, State: StatePending}
}

// Config holds the executor's tunables.
type Config struct {
	MaxDepth   int
	HardDepth  int
	MaxChainCU uint64
	SafetyBuf  uint64
}

// Executor runs chains against the shared vault and position manager.
type Executor struct {
	cfg       Config
	vault     *vault.Vault
	positions *position.Manager
	emitter   events.Emitter
	breakers  *breaker.Registry
	logger    *slog.Logger
}

// New constructs a chain executor from the shared engine parameters.
func New(p *core.Params, v *vault.Vault, pm *position.Manager) *Executor {
	cfg := Config{MaxDepth: p.ChainMaxDepth, HardDepth: p.ChainHardDepth, MaxChainCU: p.MaxChainCU, SafetyBuf: p.SafetyBufferSlots}
	return &Executor{cfg: cfg, vault: v, positions: pm, emitter: events.NoopEmitter{}}
}

// SetEmitter attaches an event sink for chain-unwind notifications.
func (e *Executor) SetEmitter(emitter events.Emitter) { e.emitter = emitter }

// SetBreakers attaches the per-verse circuit-breaker registry; nil-safe.
func (e *Executor) SetBreakers(r *breaker.Registry) { e.breakers = r }

// SetLogger attaches a structured logger; nil-safe.
func (e *Executor) SetLogger(l *slog.Logger) { e.logger = l }

// checkGuards validates depth, resolution proximity, writability, and the
// cumulative CU budget before any step executes.
func (e *Executor) checkGuards(chain *Chain, depth int, currentSlot uint64, internalCPI bool) error {
	if len(chain.Steps) == 0 || len(chain.Steps) > maxSteps {
		return ferrors.Validation(ferrors.ErrInvalidInput)
	}
	limit := e.cfg.MaxDepth
	if internalCPI {
		limit = e.cfg.HardDepth
	}
	if depth > limit {
		return ferrors.Risk(ferrors.ErrCPIDepthExceeded)
	}

	var totalCU uint64
	for _, s := range chain.Steps {
		if s.MarketSettleSlot != 0 {
			if s.MarketSettleSlot < currentSlot || s.MarketSettleSlot-currentSlot < e.cfg.SafetyBuf {
				return ferrors.State(ferrors.ErrNearResolution)
			}
		}
		if !s.Writable {
			return ferrors.Validation(ferrors.ErrAccountNotWritable)
		}
		if e.breakers != nil {
			if err := e.breakers.Guard(s.VerseID, breaker.InstructionTrade); err != nil {
				return err
			}
		}
		totalCU += s.CU
	}
	if totalCU > e.cfg.MaxChainCU {
		return ferrors.Resource(ferrors.ErrChainCUBudgetExceeded)
	}
	return nil
}

// Execute runs every step in order. If any step fails, every already-
// completed step is unwound in reverse order with its per-kind penalty and
// the chain transitions to Failed; otherwise it transitions to Active with
// every step's effect committed.
func (e *Executor) Execute(chain *Chain, depth int, currentSlot uint64, internalCPI bool, mark func(marketID [16]byte) (fixedpoint.FP64, error)) (fixedpoint.Signed64, error) {
	if err := e.checkGuards(chain, depth, currentSlot, internalCPI); err != nil {
		return fixedpoint.Signed64{}, err
	}

	for _, s := range chain.Steps {
		logging.Debug(e.logger, "chain step executing", "owner", chain.Owner, "kind", int(s.Kind), "depth", depth)
		positionID, err := e.executeStep(s)
		if err != nil {
			recovered, unwindErr := e.unwind(chain, mark, false)
			chain.State = StateFailed
			if unwindErr != nil {
				return recovered, unwindErr
			}
			return recovered, err
		}
		chain.completed = append(chain.completed, stepRecord{step: s, positionID: positionID})
	}
	chain.State = StateActive
	return fixedpoint.Signed64{}, nil
}

func (e *Executor) executeStep(s Step) (uint64, error) {
	switch s.Kind {
	case StepLong, StepShort:
		dir := position.Long
		if s.Kind == StepShort {
			dir = position.Short
		}
		p, err := e.positions.OpenPosition(position.OpenRequest{
			MarketID:       s.MarketID,
			VerseID:        s.VerseID,
			Outcome:        s.Outcome,
			OutcomeCount:   s.OutcomeCount,
			Direction:      dir,
			Engine:         s.Engine,
			Margin:         s.Amount,
			Leverage:       s.Leverage,
			MaxLeverage:    s.MaxLeverage,
			RiskQuizPassed: s.RiskQuizOK,
		})
		if err != nil {
			return 0, err
		}
		return p.ID, nil
	case StepBorrow:
		if err := e.vault.IncreaseBorrowed(s.Amount); err != nil {
			return 0, err
		}
		return 0, nil
	case StepLiquidity, StepStake, StepArbitrage:
		if s.Amount.IsZero() {
			return 0, ferrors.Validation(ferrors.ErrInvalidInput)
		}
		// These legs have no dedicated subsystem in this engine; their cash
		// effect is purely accounted for at unwind time.
		return 0, nil
	default:
		return 0, ferrors.Validation(ferrors.ErrInvalidInput)
	}
}

// Unwind reverses every completed step in reverse order using each kind's
// documented penalty, summing the recovered amount.
func (e *Executor) Unwind(chain *Chain, mark func(marketID [16]byte) (fixedpoint.FP64, error)) (fixedpoint.Signed64, error) {
	return e.unwind(chain, mark, false)
}

// EmergencyUnwind force-unwinds every completed step at a flat 10% penalty
// regardless of kind, and transitions the chain to Failed.
func (e *Executor) EmergencyUnwind(chain *Chain, mark func(marketID [16]byte) (fixedpoint.FP64, error)) (fixedpoint.Signed64, error) {
	recovered, err := e.unwind(chain, mark, true)
	chain.State = StateFailed
	return recovered, err
}

func (e *Executor) unwind(chain *Chain, mark func(marketID [16]byte) (fixedpoint.FP64, error), emergency bool) (fixedpoint.Signed64, error) {
	total := fixedpoint.Signed64{}
	records := chain.completed
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		delta, err := e.unwindStep(rec, mark, emergency)
		if err != nil {
			return total, err
		}
		total, err = total.Add(delta)
		if err != nil {
			return total, err
		}
	}
	chain.completed = nil
	e.emitter.Emit(events.ChainUnwound{Owner: chain.Owner, Recovered: total, Emergency: emergency})
	logging.Info(e.logger, "chain unwound", "owner", chain.Owner, "recovered", total.Float64(), "emergency", emergency)
	return total, nil
}

func (e *Executor) unwindStep(rec stepRecord, mark func(marketID [16]byte) (fixedpoint.FP64, error), emergency bool) (fixedpoint.Signed64, error) {
	penaltyBps := uint32(emergencyPenaltyBps)
	if !emergency {
		switch rec.step.Kind {
		case StepBorrow:
			penaltyBps = borrowInterestBps
		case StepLiquidity:
			penaltyBps = liquidityPenaltyBps
		case StepStake:
			penaltyBps = stakePenaltyBps
		case StepArbitrage:
			penaltyBps = arbitragePenaltyBps
		}
	}

	switch rec.step.Kind {
	case StepLong, StepShort:
		markPrice, err := mark(rec.step.MarketID)
		if err != nil {
			return fixedpoint.Signed64{}, err
		}
		pnl, err := e.positions.ClosePosition(rec.positionID, markPrice, position.UserInitiated)
		if err != nil {
			return fixedpoint.Signed64{}, err
		}
		recovered, err := fixedpoint.PositiveSigned64(rec.step.Amount).Add(pnl)
		if err != nil {
			return fixedpoint.Signed64{}, err
		}
		if emergency {
			penalty, err := bpsOf(rec.step.Amount, emergencyPenaltyBps)
			if err != nil {
				return fixedpoint.Signed64{}, err
			}
			recovered, err = recovered.Sub(fixedpoint.PositiveSigned64(penalty))
			if err != nil {
				return fixedpoint.Signed64{}, err
			}
		}
		return recovered, nil
	case StepBorrow:
		interest, err := bpsOf(rec.step.Amount, penaltyBps)
		if err != nil {
			return fixedpoint.Signed64{}, err
		}
		repayment, err := rec.step.Amount.Add(interest)
		if err != nil {
			return fixedpoint.Signed64{}, err
		}
		if err := e.vault.DecreaseBorrowed(rec.step.Amount); err != nil {
			return fixedpoint.Signed64{}, err
		}
		// recovered = output - repayment; output was the borrowed principal
		// itself, already spent on the chain's other legs.
		return fixedpoint.Signed64{Mag: interest, Neg: true}, nil
	case StepLiquidity, StepStake, StepArbitrage:
		penalty, err := bpsOf(rec.step.Amount, penaltyBps)
		if err != nil {
			return fixedpoint.Signed64{}, err
		}
		returned, err := rec.step.Amount.Sub(penalty)
		if err != nil {
			return fixedpoint.Signed64{}, err
		}
		return fixedpoint.PositiveSigned64(returned), nil
	default:
		return fixedpoint.Signed64{}, ferrors.Validation(ferrors.ErrInvalidInput)
	}
}

func bpsOf(amount fixedpoint.FP64, bps uint32) (fixedpoint.FP64, error) {
	frac, err := fixedpoint.FP64FromFloat64(float64(bps) / 10000.0)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	return amount.Mul(frac)
}
