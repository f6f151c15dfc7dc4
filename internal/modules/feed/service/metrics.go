package service

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copybot_feed_batches_total",
			Help: "Fill batches received from the feed, by source",
		},
		[]string{"source"},
	)
	mtxMalformed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copybot_feed_malformed_total",
			Help: "Malformed feed payloads skipped, by kind (batch|event)",
		},
		[]string{"kind"},
	)
	mtxReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "copybot_feed_reconnects_total",
			Help: "WebSocket reconnect attempts",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxBatches, mtxMalformed, mtxReconnects)
}
