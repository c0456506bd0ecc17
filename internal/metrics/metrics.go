// Package metrics exposes the Prometheus counters and gauges shared by all
// five daemons, registered once and served at /metrics by each daemon's
// HTTP side channel (mirrors the teacher's metrics.go init()-registration
// pattern, generalized from a single trading bot's counters to this
// pipeline's per-stage ones).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OrdersEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradingstack_orders_enqueued_total",
			Help: "Intents enqueued by engined, by symbol and side.",
		},
		[]string{"symbol", "side"},
	)

	OrdersRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradingstack_orders_rejected_total",
			Help: "Intents rejected by the risk gate, by reason class.",
		},
		[]string{"symbol", "reason"},
	)

	Fills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradingstack_fills_total",
			Help: "Fill (partial or terminal) events recorded by execd.",
		},
		[]string{"symbol", "side"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradingstack_queue_depth",
			Help: "Current queued-or-processing row count per topic.",
		},
		[]string{"topic"},
	)

	DeadLetterCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradingstack_queue_dead_letter_count",
			Help: "Current dead-lettered row count per topic.",
		},
		[]string{"topic"},
	)

	RealizedPnlCum = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradingstack_realized_pnl_cum_usd",
			Help: "Most recently reconstructed cumulative realized P&L, by symbol.",
		},
		[]string{"symbol"},
	)

	ShortfallBps = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradingstack_shortfall_bps",
			Help:    "Implementation shortfall in basis points per terminal fill.",
			Buckets: prometheus.LinearBuckets(-20, 5, 9),
		},
		[]string{"symbol", "side"},
	)

	ControllerFreeze = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradingstack_controller_freeze",
			Help: "1 if the controller's combined guard is frozen, else 0, by symbol.",
		},
		[]string{"symbol"},
	)

	FreshnessP99Ms = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradingstack_freshness_p99_ms",
			Help: "p99 ingest-minus-trade latency in milliseconds, by symbol.",
		},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		OrdersEnqueued, OrdersRejected, Fills,
		QueueDepth, DeadLetterCount,
		RealizedPnlCum, ShortfallBps,
		ControllerFreeze, FreshnessP99Ms,
	)
}
