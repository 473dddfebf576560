// Package metrics exposes the engine's Prometheus collectors on a private
// registry, served by the admin router.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every novaquery collector.
var Registry = prometheus.NewRegistry()

var (
	// StatementsTotal counts statements by kind and outcome code ("ok" on success).
	StatementsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "novaquery_statements_total",
			Help: "Total number of executed statements",
		},
		[]string{"kind", "code"},
	)
	// DiskIOBlocks counts simulated disk block transfers.
	DiskIOBlocks = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "novaquery_disk_io_blocks_total",
			Help: "Total number of block transfers on the simulated disk",
		},
		[]string{"op"},
	)
	// StatementDuration is the latency of statements.
	StatementDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "novaquery_statement_duration_seconds",
			Help:    "Statement latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	// TempRelations is the number of live temporary relations after the last statement.
	TempRelations = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "novaquery_temp_relations",
			Help: "Live temporary relations",
		},
	)
	// Sessions is the number of open wire sessions.
	Sessions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "novaquery_sessions",
			Help: "Open wire protocol sessions",
		},
	)
)

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
