package position

import (
	"encoding/hex"
	"log/slog"

	"flashbets/amm"
	"flashbets/breaker"
	"flashbets/core"
	ferrors "flashbets/core/errors"
	"flashbets/core/events"
	"flashbets/fees"
	"flashbets/fixedpoint"
	"flashbets/observability/logging"
	"flashbets/observability/metrics"
	"flashbets/vault"
	"flashbets/verse"
)

// Manager is the process-wide registry of open positions, mediating between
// a market's AMM, the shared vault, and the fee engine on every open and
// close.
type Manager struct {
	vault          *vault.Vault
	fees           *fees.Engine
	sigma          fixedpoint.FP64
	slippageCapBps uint32
	emitter        events.Emitter
	breakers       *breaker.Registry
	logger         *slog.Logger
	metrics        *metrics.Registry

	positions map[uint64]*Position
	nextID    uint64
}

// New constructs a position manager bound to the given vault and fee engine,
// from the shared engine parameters: sigma (the platform volatility scalar
// feeding the liquidation-margin formula) and the slippage cap gating every
// entry trade.
func New(v *vault.Vault, feeEngine *fees.Engine, p *core.Params) *Manager {
	return &Manager{
		vault:          v,
		fees:           feeEngine,
		sigma:          p.Sigma,
		slippageCapBps: p.SlippageCapBps,
		positions:      make(map[uint64]*Position),
		emitter:        events.NoopEmitter{},
	}
}

// SetEmitter attaches an event sink for position-open/close notifications.
func (m *Manager) SetEmitter(e events.Emitter) { m.emitter = e }

// SetBreakers attaches the per-verse circuit-breaker registry; nil-safe,
// leave unset to run without a breaker gate (e.g. unit tests of the pricing
// math alone).
func (m *Manager) SetBreakers(r *breaker.Registry) { m.breakers = r }

// SetLogger attaches a structured logger; nil-safe.
func (m *Manager) SetLogger(l *slog.Logger) { m.logger = l }

// SetMetrics attaches the process-wide metrics registry; nil-safe.
func (m *Manager) SetMetrics(reg *metrics.Registry) { m.metrics = reg }

// OpenRequest bundles the inputs OpenPosition needs beyond the manager's own
// state, mirroring the narrow "validate, then mutate" shape of
// native/lending's BorrowNHB.
type OpenRequest struct {
	Owner          string
	MarketID       [16]byte
	VerseID        verse.ID
	Outcome        int
	OutcomeCount   int
	Direction      Direction
	Engine         amm.Engine
	Margin         fixedpoint.FP64
	Leverage       int
	MaxLeverage    int
	RiskQuizPassed bool
	ChainDepth     int
}

const maxLeverage = 500
const riskQuizLeverageThreshold = 10

// OpenPosition validates the requested leverage and risk-quiz attestation,
// prices entry via the market's AMM, derives a liquidation price from the
// margin formula, charges the taker fee, and records total_oi.
func (m *Manager) OpenPosition(req OpenRequest) (*Position, error) {
	if m.breakers != nil {
		if err := m.breakers.Guard(req.VerseID, breaker.InstructionTrade); err != nil {
			return nil, err
		}
	}
	if req.Leverage < 1 || req.Leverage > maxLeverage {
		return nil, ferrors.Validation(ferrors.ErrInvalidLeverage)
	}
	if req.Leverage > req.MaxLeverage {
		return nil, ferrors.Risk(ferrors.ErrExcessiveLeverage)
	}
	if req.Leverage > riskQuizLeverageThreshold && !req.RiskQuizPassed {
		return nil, ferrors.Authorization(ferrors.ErrUnauthorized)
	}
	if req.Margin.IsZero() {
		return nil, ferrors.Validation(ferrors.ErrInvalidInput)
	}

	openNotional, err := req.Margin.Mul(fixedpoint.FP64FromUint64(uint64(req.Leverage)))
	if err != nil {
		return nil, err
	}
	entryPrice, err := m.executeEntryTrade(req, openNotional)
	if err != nil {
		return nil, err
	}

	marginRatio, err := requiredMarginRatio(req.Leverage, m.sigma, req.OutcomeCount)
	if err != nil {
		return nil, err
	}
	liqPrice, err := liquidationPrice(entryPrice, req.Leverage, marginRatio, req.Direction)
	if err != nil {
		return nil, err
	}

	p := &Position{
		Owner:               req.Owner,
		MarketID:            req.MarketID,
		VerseID:             req.VerseID,
		Outcome:             req.Outcome,
		Direction:           req.Direction,
		Margin:              req.Margin,
		Leverage:            req.Leverage,
		EntryPrice:          entryPrice,
		RequiredMarginRatio: marginRatio,
		LiquidationPrice:    liqPrice,
		Status:              StatusOpen,
	}

	notional, err := p.Notional()
	if err != nil {
		return nil, err
	}

	coverage, err := m.vault.Coverage()
	if err != nil {
		return nil, err
	}
	var feeBps uint32
	if m.fees != nil {
		alloc, err := m.fees.Apply(notional, coverage)
		if err != nil {
			return nil, err
		}
		if err := m.vault.CreditFee(alloc.Vault); err != nil {
			return nil, err
		}
		feeBps = alloc.FeeBps
	}

	if err := m.vault.IncreaseOI(notional); err != nil {
		return nil, err
	}

	m.nextID++
	p.ID = m.nextID
	m.positions[p.ID] = p

	m.emitter.Emit(events.PositionOpened{
		PositionID: p.ID,
		Owner:      p.Owner,
		MarketID:   p.MarketID,
		Outcome:    p.Outcome,
		Leverage:   p.Leverage,
		EntryPrice: p.EntryPrice,
	})
	logging.Info(m.logger, "position opened", "position_id", p.ID, "owner", p.Owner, "leverage", p.Leverage, "entry_price", p.EntryPrice.Float64())
	if m.metrics != nil {
		marketLabel := hex.EncodeToString(p.MarketID[:])
		m.metrics.FeeBps.WithLabelValues(marketLabel).Set(float64(feeBps))
		m.metrics.TotalOI.WithLabelValues(marketLabel).Add(notional.Float64())
	}
	return p, nil
}

// executeEntryTrade sizes the entry trade in shares from notional/price,
// signs it by direction, and routes it through the market's AMM via
// Quote+Apply rather than reading a static pre-trade price: the position's
// entry price is the trade's actual average execution price. If the trade
// moves the outcome's price by more than slippageCapBps, the trade is
// reverted and OpenPosition fails rather than opening at a blown-out price.
func (m *Manager) executeEntryTrade(req OpenRequest, notional fixedpoint.FP64) (fixedpoint.FP64, error) {
	priceBefore128, err := req.Engine.Price(req.Outcome)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	if priceBefore128.IsZero() {
		return fixedpoint.FP64{}, ferrors.Arithmetic(ferrors.ErrDivisionByZero)
	}

	shares, err := fixedpoint.PositiveSigned128(notional.ToFP128()).Div(priceBefore128)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	shares.Neg = req.Direction == Short

	cost, err := req.Engine.Quote(req.Outcome, shares)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	if err := req.Engine.Apply(req.Outcome, shares); err != nil {
		return fixedpoint.FP64{}, err
	}

	priceAfter128, err := req.Engine.Price(req.Outcome)
	if err != nil {
		return fixedpoint.FP64{}, err
	}

	moveBps, err := priceMoveBps(priceBefore128, priceAfter128)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	if moveBps > m.slippageCapBps {
		reverted := fixedpoint.Signed128{Mag: shares.Mag, Neg: !shares.Neg}
		_ = req.Engine.Apply(req.Outcome, reverted)
		return fixedpoint.FP64{}, ferrors.Validation(ferrors.ErrSlippageExceeded)
	}

	logging.Debug(m.logger, "entry trade quoted", "outcome", req.Outcome, "shares", shares.Float64(), "cost", cost.Float64(), "move_bps", moveBps)

	if shares.Mag.IsZero() {
		return priceBefore128.Narrow()
	}
	avgPrice128, err := cost.Mag.Div(shares.Mag)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	return avgPrice128.Narrow()
}

// priceMoveBps returns the unsigned move from before to after in basis
// points of the before price.
func priceMoveBps(before, after fixedpoint.FP128) (uint32, error) {
	var diff fixedpoint.FP128
	var err error
	if after.GreaterThan(before) {
		diff, err = after.Sub(before)
	} else {
		diff, err = before.Sub(after)
	}
	if err != nil {
		return 0, err
	}
	ratio, err := diff.Div(before)
	if err != nil {
		return 0, err
	}
	return uint32(ratio.Float64() * 10000), nil
}

// Get returns the position by id, or nil if it is not open.
func (m *Manager) Get(id uint64) (*Position, bool) {
	p, ok := m.positions[id]
	return p, ok
}

// Mark recomputes margin ratio and effective leverage against a fresh mark
// price, without mutating the position; callers use this to evaluate
// liquidation and auto-close triggers.
func (m *Manager) Mark(id uint64, mark fixedpoint.FP64) (marginRatio fixedpoint.FP64, effectiveLeverage fixedpoint.FP64, err error) {
	p, ok := m.positions[id]
	if !ok {
		return fixedpoint.FP64{}, fixedpoint.FP64{}, ferrors.State(ferrors.ErrPositionClosed)
	}
	marginRatio, err = p.MarginRatio(mark)
	if err != nil {
		return fixedpoint.FP64{}, fixedpoint.FP64{}, err
	}
	effectiveLeverage, err = p.EffectiveLeverage(mark)
	if err != nil {
		return fixedpoint.FP64{}, fixedpoint.FP64{}, err
	}
	return marginRatio, effectiveLeverage, nil
}

// CheckAutoClose reports whether mark has crossed the position's take-profit
// or stop-loss trigger, if either is set.
func (m *Manager) CheckAutoClose(id uint64, mark fixedpoint.FP64) (bool, error) {
	p, ok := m.positions[id]
	if !ok {
		return false, ferrors.State(ferrors.ErrPositionClosed)
	}
	favorable := mark.GreaterThan(p.EntryPrice) == (p.Direction == Long)
	if p.TakeProfit != nil && favorable {
		crossed := mark.GreaterThan(*p.TakeProfit) == (p.Direction == Long)
		if crossed {
			return true, nil
		}
	}
	if p.StopLoss != nil && !favorable {
		crossed := mark.LessThan(*p.StopLoss) == (p.Direction == Long)
		if crossed {
			return true, nil
		}
	}
	return false, nil
}

// SetAutoCloseOrders attaches optional take-profit/stop-loss trigger prices
// to an open position.
func (m *Manager) SetAutoCloseOrders(id uint64, takeProfit, stopLoss *fixedpoint.FP64) error {
	p, ok := m.positions[id]
	if !ok {
		return ferrors.State(ferrors.ErrPositionClosed)
	}
	p.TakeProfit = takeProfit
	p.StopLoss = stopLoss
	return nil
}

// ClosePosition realizes PnL against the vault, decrements total_oi, and
// removes the position from the registry.
func (m *Manager) ClosePosition(id uint64, mark fixedpoint.FP64, reason CloseReason) (fixedpoint.Signed64, error) {
	p, ok := m.positions[id]
	if !ok {
		return fixedpoint.Signed64{}, ferrors.State(ferrors.ErrPositionClosed)
	}
	pnl, err := p.UnrealizedPnL(mark)
	if err != nil {
		return fixedpoint.Signed64{}, err
	}
	if err := m.vault.RealizePnL(pnl); err != nil {
		return fixedpoint.Signed64{}, err
	}
	notional, err := p.Notional()
	if err != nil {
		return fixedpoint.Signed64{}, err
	}
	if err := m.vault.DecreaseOI(notional); err != nil {
		return fixedpoint.Signed64{}, err
	}
	if reason == LiquidatedReason {
		p.Status = StatusLiquidated
	} else {
		p.Status = StatusClosed
	}
	delete(m.positions, id)

	m.emitter.Emit(events.PositionClosed{PositionID: id, PnL: pnl, Reason: toEventReason(reason)})
	return pnl, nil
}

// toEventReason maps a position.CloseReason to its wire-level events
// counterpart, keeping the events package free of a position import.
func toEventReason(r CloseReason) events.CloseReason {
	switch r {
	case LiquidatedReason:
		return events.ReasonLiquidated
	case Resolved:
		return events.ReasonResolved
	case AutoTriggered:
		return events.ReasonAutoTriggered
	default:
		return events.ReasonUserInitiated
	}
}

// requiredMarginRatio computes 1/leverage + sigma*sqrt(leverage)*f(N), with
// f(N) = 1 + 0.1*(N-1). f enforces that a market with more outcomes (and
// therefore thinner per-outcome liquidity) demands proportionally more
// margin headroom.
func requiredMarginRatio(leverage int, sigma fixedpoint.FP64, outcomeCount int) (fixedpoint.FP64, error) {
	levFP := fixedpoint.FP128FromUint64(uint64(leverage))
	invLev, err := fixedpoint.One128().Div(levFP)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	sqrtLev, err := fixedpoint.Sqrt(levFP)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	fN, err := fixedpoint.FP128FromFloat64(1 + 0.1*float64(outcomeCount-1))
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	term2, err := sigma.ToFP128().Mul(sqrtLev)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	term2, err = term2.Mul(fN)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	sum, err := invLev.Add(term2)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	return sum.Narrow()
}

// liquidationPrice places the liquidation mark on the losing side of entry
// (below it for a Long, above it for a Short) at a distance of
// entry*|marginRatio*leverage - 1|/leverage. That distance is the size of the
// mark move in the leveraged-PnL linearization of Position.UnrealizedPnL,
// equity = margin*(1 + sign*leverage*(mark-entry)/entry), at which equity
// equals marginRatio*notional = marginRatio*leverage*margin.
func liquidationPrice(entry fixedpoint.FP64, leverage int, marginRatio fixedpoint.FP64, dir Direction) (fixedpoint.FP64, error) {
	levFP, err := fixedpoint.FP64FromFloat64(float64(leverage))
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	threshold, err := marginRatio.Mul(levFP)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	one := fixedpoint.One64()
	// excess = |marginRatio*leverage - 1|, the distance (in leverage units)
	// from break-even to the liquidation threshold.
	var excess fixedpoint.FP64
	if threshold.GreaterThan(one) {
		excess, err = threshold.Sub(one)
	} else {
		excess, err = one.Sub(threshold)
	}
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	fraction, err := excess.Div(levFP)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	offset, err := entry.Mul(fraction)
	if err != nil {
		return fixedpoint.FP64{}, err
	}
	// A Long is liquidated by a price drop, a Short by a price rise: the
	// liquidation side is "down" for Long, "up" for Short, independent of
	// whether excess itself came out negative above.
	liquidatedByDrop := dir == Long
	if liquidatedByDrop {
		return entry.Sub(offset)
	}
	return entry.Add(offset)
}
