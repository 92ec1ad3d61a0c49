// Package core holds the engine-wide parameters aggregate every other
// package is wired against. Grounded on nhbchain's config.Config-as-global
// pattern, generalized here into a single struct threaded by pointer into
// every constructor instead of read from a package-level global.
package core

import (
	"flashbets/config"
	"flashbets/fixedpoint"
)

// Params aggregates every tunable in config.Config, pre-parsed into the
// fixedpoint and integer types the engine packages operate on, so each
// constructor can pull its own slice of fields without re-parsing floats.
type Params struct {
	CoverageTauNormal    fixedpoint.FP64
	CoverageTauBootstrap fixedpoint.FP64

	FeeBaseBps  uint32
	FeeSlopeBps uint32
	FeeMaxBps   uint32

	LiqMinBps               uint32
	LiqMaxBps               uint32
	Sigma                   fixedpoint.FP64
	LiqKeeperBps            uint32
	LiqEpsBuffer            fixedpoint.FP64
	LiqKeeperMaxReqPerEpoch uint32
	LiqKeeperEpochSlots     uint64

	MaxBaseLeverage      int
	MaxEffectiveLeverage int

	SpreadHaltBps         uint32
	OracleMaxAgeSlots     uint64
	OracleConfidenceFloor uint32

	SlippageCapBps uint32
	PMAMMMaxIters  int
	PMAMMHardIters int

	ChainMaxDepth     int
	ChainHardDepth    int
	MaxChainCU        uint64
	SafetyBufferSlots uint64

	CircuitMinCoverage       fixedpoint.FP64
	CircuitPriceMoveBps      uint32
	CircuitPriceMoveSlots    uint64
	CircuitHaltDurationSlots uint64

	TauTimeDecayDefault fixedpoint.FP64
	MMTEmissionShareBps uint32
}

// liqEpsBufferDefault widens the liquidation health check slightly to
// prevent chatter at the exact boundary; it is not exposed in the TOML
// surface since §6 does not name it as a tunable.
const liqEpsBufferDefault = 0.001

// FromConfig parses a loaded config.Config into a Params aggregate, ready
// to hand by pointer to every engine constructor.
func FromConfig(cfg *config.Config) (*Params, error) {
	p := &Params{
		FeeBaseBps:  cfg.FeeBase,
		FeeSlopeBps: cfg.FeeSlope,
		FeeMaxBps:   cfg.FeeMax,

		LiqMinBps:               cfg.LiqMinBps,
		LiqMaxBps:               cfg.LiqMaxBps,
		LiqKeeperBps:            cfg.LiqKeeperBps,
		LiqKeeperMaxReqPerEpoch: cfg.LiqKeeperMaxReqPerEpoch,
		LiqKeeperEpochSlots:     cfg.LiqKeeperEpochSlots,

		MaxBaseLeverage:      cfg.MaxBaseLeverage,
		MaxEffectiveLeverage: cfg.MaxEffectiveLeverage,

		SpreadHaltBps:         cfg.SpreadHaltBps,
		OracleMaxAgeSlots:     cfg.OracleMaxAgeSlots,
		OracleConfidenceFloor: cfg.OracleConfidenceFloor,

		SlippageCapBps: cfg.SlippageCapBps,
		PMAMMMaxIters:  cfg.PMAMMMaxIters,
		PMAMMHardIters: cfg.PMAMMHardIters,

		ChainMaxDepth:     cfg.ChainMaxDepth,
		ChainHardDepth:    cfg.ChainHardDepth,
		MaxChainCU:        cfg.MaxChainCU,
		SafetyBufferSlots: cfg.SafetyBufferSlots,

		CircuitPriceMoveBps:      cfg.CircuitPriceMoveBps,
		CircuitPriceMoveSlots:    cfg.CircuitPriceMoveSlots,
		CircuitHaltDurationSlots: cfg.CircuitHaltDurationSlots,

		MMTEmissionShareBps: cfg.MMTEmissionShareBps,
	}

	var err error
	if p.CoverageTauNormal, err = fixedpoint.FP64FromFloat64(cfg.CoverageTau); err != nil {
		return nil, err
	}
	if p.CoverageTauBootstrap, err = fixedpoint.FP64FromFloat64(cfg.CoverageTauBootstrap); err != nil {
		return nil, err
	}
	if p.Sigma, err = fixedpoint.FP64FromFloat64(cfg.Sigma); err != nil {
		return nil, err
	}
	if p.LiqEpsBuffer, err = fixedpoint.FP64FromFloat64(liqEpsBufferDefault); err != nil {
		return nil, err
	}
	if p.CircuitMinCoverage, err = fixedpoint.FP64FromFloat64(cfg.CircuitMinCoverage); err != nil {
		return nil, err
	}
	if p.TauTimeDecayDefault, err = fixedpoint.FP64FromFloat64(cfg.TauTimeDecayDefault); err != nil {
		return nil, err
	}
	return p, nil
}

// Default returns the Params derived from config's documented defaults,
// for tests and for bootstrapping a process with no TOML file on disk yet.
func Default() (*Params, error) {
	cfg := config.Config{
		CoverageTau:          0.5,
		CoverageTauBootstrap: 0.7,
		FeeBase:              3,
		FeeSlope:             25,
		FeeMax:               28,
		LiqMinBps:            200,
		LiqMaxBps:            800,
		Sigma:                1.5,
		LiqKeeperBps:         5,
		LiqKeeperMaxReqPerEpoch: 20,
		LiqKeeperEpochSlots:     1800,
		MaxBaseLeverage:      100,
		MaxEffectiveLeverage: 500,
		SpreadHaltBps:        1000,
		OracleMaxAgeSlots:    150,
		OracleConfidenceFloor: 9500,
		SlippageCapBps:       500,
		PMAMMMaxIters:        5,
		PMAMMHardIters:       10,
		ChainMaxDepth:        3,
		ChainHardDepth:       4,
		MaxChainCU:           45000,
		SafetyBufferSlots:    10,
		CircuitMinCoverage:       0.5,
		CircuitPriceMoveBps:      500,
		CircuitPriceMoveSlots:    4,
		CircuitHaltDurationSlots: 9000,
		TauTimeDecayDefault:      0.1,
		MMTEmissionShareBps:      2000,
	}
	return FromConfig(&cfg)
}
