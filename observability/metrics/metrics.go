// Package metrics exposes the engine's prometheus instrumentation:
// coverage and open-interest gauges, liquidation volume, and
// circuit-breaker state per verse. Grounded on prometheus/client_golang,
// already part of the dependency stack.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every metric the engine publishes, constructed once per
// process and wired into the vault, liquidation engine, and breaker.
type Registry struct {
	Coverage          *prometheus.GaugeVec
	TotalOI           *prometheus.GaugeVec
	VaultBalance      prometheus.Gauge
	LiquidationVolume *prometheus.CounterVec
	KeeperRewards     *prometheus.CounterVec
	BreakerState      *prometheus.GaugeVec
	FeeBps            *prometheus.GaugeVec
}

// NewRegistry constructs and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		Coverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flashbets_market_coverage",
			Help: "Vault coverage ratio for a market's verse.",
		}, []string{"verse"}),
		TotalOI: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flashbets_market_total_oi",
			Help: "Total open interest for a market.",
		}, []string{"market"}),
		VaultBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flashbets_vault_balance",
			Help: "Pooled collateral balance held by the vault.",
		}),
		LiquidationVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flashbets_liquidation_volume_total",
			Help: "Cumulative notional liquidated per market.",
		}, []string{"market"}),
		KeeperRewards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flashbets_keeper_rewards_total",
			Help: "Cumulative keeper rewards paid per market.",
		}, []string{"market"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flashbets_circuit_breaker_state",
			Help: "Circuit breaker state per verse (0=normal,1=halted,2=cooldown,3=emergency).",
		}, []string{"verse"}),
		FeeBps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flashbets_fee_bps",
			Help: "Current elastic taker fee in basis points per market.",
		}, []string{"market"}),
	}

	reg.MustRegister(
		m.Coverage,
		m.TotalOI,
		m.VaultBalance,
		m.LiquidationVolume,
		m.KeeperRewards,
		m.BreakerState,
		m.FeeBps,
	)
	return m
}

// ObserveLiquidation records one liquidation draw against market.
func (m *Registry) ObserveLiquidation(market string, notional, reward float64) {
	m.LiquidationVolume.WithLabelValues(market).Add(notional)
	m.KeeperRewards.WithLabelValues(market).Add(reward)
}
