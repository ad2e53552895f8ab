package observability

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics tracks waterfall settlement activity per pool.
type SettlementMetrics struct {
	settlements   *prometheus.CounterVec
	amounts       *prometheus.CounterVec
	uncoveredLoss *prometheus.CounterVec
	excessRecov   *prometheus.CounterVec
}

var (
	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics
)

// Settlements returns the lazily-initialised settlement metrics registry.
func Settlements() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tranche",
				Subsystem: "settlement",
				Name:      "events_total",
				Help:      "Settlement events segmented by pool, kind, and outcome.",
			}, []string{"pool", "kind", "outcome"}),
			amounts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tranche",
				Subsystem: "settlement",
				Name:      "amount_total",
				Help:      "Settled amounts segmented by pool and kind, in base units.",
			}, []string{"pool", "kind"}),
			uncoveredLoss: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tranche",
				Subsystem: "settlement",
				Name:      "uncovered_loss_total",
				Help:      "Loss amounts the entire capital stack failed to absorb.",
			}, []string{"pool"}),
			excessRecov: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tranche",
				Subsystem: "settlement",
				Name:      "excess_recovery_total",
				Help:      "Recovery amounts returned to the caller after all outstanding losses were repaid.",
			}, []string{"pool"}),
		}
		prometheus.MustRegister(
			settlementRegistry.settlements,
			settlementRegistry.amounts,
			settlementRegistry.uncoveredLoss,
			settlementRegistry.excessRecov,
		)
	})
	return settlementRegistry
}

// RecordSettlement counts one settlement call and its amount.
func (m *SettlementMetrics) RecordSettlement(pool, kind, outcome string, amount *big.Int) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(pool, kind, outcome).Inc()
	if value := amountValue(amount); value > 0 {
		m.amounts.WithLabelValues(pool, kind).Add(value)
	}
}

// RecordUncoveredLoss counts residual loss the capital stack could not absorb.
func (m *SettlementMetrics) RecordUncoveredLoss(pool string, amount *big.Int) {
	if m == nil {
		return
	}
	if value := amountValue(amount); value > 0 {
		m.uncoveredLoss.WithLabelValues(pool).Add(value)
	}
}

// RecordExcessRecovery counts recovery returned after losses were repaid.
func (m *SettlementMetrics) RecordExcessRecovery(pool string, amount *big.Int) {
	if m == nil {
		return
	}
	if value := amountValue(amount); value > 0 {
		m.excessRecov.WithLabelValues(pool).Add(value)
	}
}

func amountValue(amount *big.Int) float64 {
	if amount == nil || amount.Sign() <= 0 {
		return 0
	}
	value, _ := new(big.Float).SetInt(amount).Float64()
	return value
}
