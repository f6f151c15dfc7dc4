package service

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxFills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copybot_fills_total",
			Help: "Fills seen by the engine, by verdict",
		},
		[]string{"verdict"},
	)
	mtxSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copybot_skips_total",
			Help: "Decisions skipped, by reason",
		},
		[]string{"reason"},
	)
	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copybot_orders_total",
			Help: "Order attempts, by action and terminal status",
		},
		[]string{"action", "status"},
	)
	mtxOpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "copybot_open_positions",
			Help: "Positions in the follower ledger",
		},
	)
	mtxUniqueFills = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "copybot_unique_fills",
			Help: "Distinct target fills processed since start",
		},
	)
	mtxHandleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "copybot_handle_fill_seconds",
			Help:    "Time to classify, size and execute one target fill",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
	mtxResyncErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "copybot_resync_errors_total",
			Help: "Failed position reconciliations",
		},
	)
)

func init() {
	prometheus.MustRegister(
		mtxFills,
		mtxSkips,
		mtxOrders,
		mtxOpenPositions,
		mtxUniqueFills,
		mtxHandleSeconds,
		mtxResyncErrors,
	)
}
