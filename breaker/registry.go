package breaker

import (
	"log/slog"
	"sync"

	"flashbets/core"
	"flashbets/core/events"
	"flashbets/observability/logging"
	"flashbets/observability/metrics"
	"flashbets/verse"
)

// Registry is the process-wide, verse-keyed store of circuit breakers: one
// verse's oracle spread halt or liquidation storm never trips another
// verse's trading, matching §4.9's per-verse isolation requirement.
// Registry implements native/common.PauseView so the same pause check that
// guards native module instructions also guards a verse's trades.
type Registry struct {
	mu       sync.Mutex
	params   *core.Params
	breakers map[string]*Breaker
	emitter  events.Emitter
	logger   *slog.Logger
	metrics  *metrics.Registry
}

// NewRegistry constructs an empty registry; breakers are created lazily, one
// per verse, the first time that verse is guarded or evaluated.
func NewRegistry(p *core.Params) *Registry {
	return &Registry{
		params:   p,
		breakers: make(map[string]*Breaker),
		emitter:  events.NoopEmitter{},
	}
}

// SetEmitter attaches an event sink, propagated to every breaker this
// registry creates from this point on.
func (r *Registry) SetEmitter(e events.Emitter) { r.emitter = e }

// SetLogger attaches a structured logger; nil-safe.
func (r *Registry) SetLogger(l *slog.Logger) { r.logger = l }

// SetMetrics attaches the process-wide metrics registry; nil-safe.
func (r *Registry) SetMetrics(m *metrics.Registry) { r.metrics = m }

// breakerFor returns the verse's breaker, creating it in StateNormal on
// first access.
func (r *Registry) breakerFor(id verse.ID) *Breaker {
	key := id.String()
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[key]
	if !ok {
		b = New(r.params)
		b.SetVerseID([32]byte(id))
		b.SetEmitter(r.emitter)
		r.breakers[key] = b
		logging.Debug(r.logger, "breaker created", "verse", key)
	}
	return b
}

// Guard gates an instruction against the given verse's current state.
func (r *Registry) Guard(id verse.ID, kind InstructionKind) error {
	b := r.breakerFor(id)
	err := b.Guard(kind)
	if err != nil {
		logging.Info(r.logger, "breaker blocked instruction", "verse", id.String(), "state", b.State().String())
	}
	return err
}

// Evaluate runs a verse's per-slot trip/recovery transitions and publishes
// its resulting state to the metrics registry, if one is attached.
func (r *Registry) Evaluate(id verse.ID, sample Sample) {
	b := r.breakerFor(id)
	before := b.State()
	b.Evaluate(sample)
	if b.State() != before {
		logging.Info(r.logger, "breaker state transition", "verse", id.String(), "from", before.String(), "to", b.State().String())
	}
	if r.metrics != nil {
		r.metrics.BreakerState.WithLabelValues(id.String()).Set(float64(b.State()))
	}
}

// State returns the current state of a verse's breaker, StateNormal if the
// verse has never been evaluated or guarded.
func (r *Registry) State(id verse.ID) State {
	r.mu.Lock()
	b, ok := r.breakers[id.String()]
	r.mu.Unlock()
	if !ok {
		return StateNormal
	}
	return b.State()
}

// IsPaused implements native/common.PauseView: module is a verse.ID's hex
// string (verse.ID.String()), so a verse is "paused" whenever its breaker is
// anywhere but Normal. An unknown verse has never tripped, so it reads as
// not paused.
func (r *Registry) IsPaused(module string) bool {
	r.mu.Lock()
	b, ok := r.breakers[module]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return b.State() != StateNormal
}
