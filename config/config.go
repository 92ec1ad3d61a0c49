// Package config loads the engine's tunable parameters from a TOML file,
// falling back to the documented defaults when the file is absent.
// Grounded on nhbchain's config.Load/createDefault pattern (BurntSushi/toml
// decode-or-seed-defaults), generalized from node connectivity settings to
// the coverage, fee, liquidation, leverage, oracle, chain, and
// circuit-breaker tunables enumerated in §6.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full set of recognized options from §6.
type Config struct {
	CoverageTau         float64 `toml:"COVERAGE_TAU"`
	CoverageTauBootstrap float64 `toml:"COVERAGE_TAU_BOOTSTRAP"`

	FeeBase  uint32 `toml:"FEE_BASE"`
	FeeSlope uint32 `toml:"FEE_SLOPE"`
	FeeMax   uint32 `toml:"FEE_MAX"`

	LiqMinBps uint32  `toml:"LIQ_MIN_BPS"`
	LiqMaxBps uint32  `toml:"LIQ_MAX_BPS"`
	Sigma     float64 `toml:"SIGMA"`
	LiqKeeperBps uint32 `toml:"LIQ_KEEPER_BPS"`
	// LiqKeeperMaxReqPerEpoch and LiqKeeperEpochSlots bound how many
	// liquidation attempts a single keeper address may submit per epoch,
	// independent of the per-second token bucket in liquidation.Engine.
	LiqKeeperMaxReqPerEpoch uint32 `toml:"LIQ_KEEPER_MAX_REQ_PER_EPOCH"`
	LiqKeeperEpochSlots     uint64 `toml:"LIQ_KEEPER_EPOCH_SLOTS"`

	MaxBaseLeverage      int `toml:"MAX_BASE_LEVERAGE"`
	MaxEffectiveLeverage int `toml:"MAX_EFFECTIVE_LEVERAGE"`

	SpreadHaltBps         uint32 `toml:"SPREAD_HALT_BPS"`
	OracleMaxAgeSlots      uint64 `toml:"ORACLE_MAX_AGE_SLOTS"`
	OracleConfidenceFloor  uint32 `toml:"ORACLE_CONFIDENCE_FLOOR"`

	SlippageCapBps uint32 `toml:"SLIPPAGE_CAP_BPS"`
	PMAMMMaxIters  int    `toml:"PM_AMM_MAX_ITERS"`
	PMAMMHardIters int    `toml:"PM_AMM_HARD_ITERS"`

	ChainMaxDepth     int    `toml:"CHAIN_MAX_DEPTH"`
	ChainHardDepth    int    `toml:"CHAIN_HARD_DEPTH"`
	MaxChainCU        uint64 `toml:"MAX_CHAIN_CU"`
	SafetyBufferSlots uint64 `toml:"SAFETY_BUFFER_SLOTS"`

	CircuitMinCoverage         float64 `toml:"CIRCUIT_MIN_COVERAGE"`
	CircuitPriceMoveBps        uint32 `toml:"CIRCUIT_PRICE_MOVE_BPS"`
	CircuitPriceMoveSlots      uint64 `toml:"CIRCUIT_PRICE_MOVE_SLOTS"`
	CircuitHaltDurationSlots   uint64 `toml:"CIRCUIT_HALT_DURATION_SLOTS"`

	TauTimeDecayDefault float64 `toml:"TAU_TIME_DECAY_DEFAULT"`
	MMTEmissionShareBps uint32  `toml:"MMT_EMISSION_SHARE_BPS"`
}

// Load reads cfg from path, seeding a default file if none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault writes and returns the documented defaults from §6.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		CoverageTau:          0.5,
		CoverageTauBootstrap: 0.7,

		FeeBase:  3,
		FeeSlope: 25,
		FeeMax:   28,

		LiqMinBps:    200,
		LiqMaxBps:    800,
		Sigma:        1.5,
		LiqKeeperBps: 5,

		LiqKeeperMaxReqPerEpoch: 20,
		LiqKeeperEpochSlots:     1800,

		MaxBaseLeverage:      100,
		MaxEffectiveLeverage: 500,

		SpreadHaltBps:         1000,
		OracleMaxAgeSlots:     150,
		OracleConfidenceFloor: 9500,

		SlippageCapBps: 500,
		PMAMMMaxIters:  5,
		PMAMMHardIters: 10,

		ChainMaxDepth:     3,
		ChainHardDepth:    4,
		MaxChainCU:        45000,
		SafetyBufferSlots: 10,

		CircuitMinCoverage:       0.5,
		CircuitPriceMoveBps:      500,
		CircuitPriceMoveSlots:    4,
		CircuitHaltDurationSlots: 9000,

		TauTimeDecayDefault: 0.1,
		MMTEmissionShareBps: 2000,
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
