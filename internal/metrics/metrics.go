package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PriceSyncsTotal counts price synchronization runs by result
	PriceSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_price_syncs_total",
			Help: "Total number of price synchronization runs",
		},
		[]string{"result"},
	)

	// GlobalSupply tracks the current global supply per token
	GlobalSupply = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "engine_global_supply",
			Help: "Current global supply by token",
		},
		[]string{"token"},
	)

	// PriceDeviation tracks the coefficient of variation of per-chain prices
	PriceDeviation = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "engine_price_deviation_cv",
			Help: "Coefficient of variation of per-chain implied prices",
		},
		[]string{"token"},
	)

	// ReserveStatus tracks per-chain reserve classification (0=sufficient, 1=low, 2=critical)
	ReserveStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "engine_reserve_status",
			Help: "Reserve classification by token and chain",
		},
		[]string{"token", "chain"},
	)

	// RebalancesTotal counts triggered rebalances by mode (bridge or fallback) and status
	RebalancesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_rebalances_total",
			Help: "Total number of liquidity rebalances",
		},
		[]string{"mode", "status"},
	)

	// LiquidityRequestsPending tracks unsettled liquidity requests by status
	LiquidityRequestsPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "engine_liquidity_requests_pending",
			Help: "Number of unsettled liquidity requests by status",
		},
		[]string{"status"},
	)

	// GraduationsTotal counts graduation transitions by status
	GraduationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_graduations_total",
			Help: "Total number of graduation transitions",
		},
		[]string{"status"},
	)

	// TransactionsSent counts transactions sent to each chain
	TransactionsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_transactions_sent_total",
			Help: "Total number of transactions sent",
		},
		[]string{"chain", "operation", "status"},
	)

	// ErrorsTotal counts errors by component and type
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// TickDuration tracks the duration of one full engine tick per token
	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_tick_duration_seconds",
			Help:    "Duration of one engine tick for one token",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"loop"},
	)
)

// ReserveStatusValue converts a classification into its gauge value.
func ReserveStatusValue(status string) float64 {
	switch status {
	case "low":
		return 1
	case "critical":
		return 2
	default:
		return 0
	}
}
