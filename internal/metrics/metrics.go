// Package metrics holds the Prometheus collectors for index maintenance,
// query rewriting and bulk reindexing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orderindex"

var (
	// RecomputesTotal counts full-row recomputes by record kind and outcome.
	RecomputesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputes_total",
			Help:      "Total index row recomputes",
		},
		[]string{"kind", "status"},
	)

	// UpsertsTotal counts upsert statements by table and outcome.
	UpsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upserts_total",
			Help:      "Total index upsert statements",
		},
		[]string{"table", "status"},
	)

	// UpsertDuration tracks upsert statement latency.
	UpsertDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upsert_duration_seconds",
			Help:      "Index upsert duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"table"},
	)

	// TriggerDecisionsTotal counts attribute notifications by decision.
	TriggerDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_decisions_total",
			Help:      "Attribute change notifications by recompute decision",
		},
		[]string{"decision"}, // "recompute" / "ignore"
	)

	// ReindexRecordsTotal counts records processed by the bulk reindexer.
	ReindexRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_records_total",
			Help:      "Records recomputed by the bulk reindexer",
		},
	)

	// ReindexAbortsTotal counts bulk runs stopped by the kill switch or cancellation.
	ReindexAbortsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reindex_aborts_total",
			Help:      "Bulk reindex runs aborted before completion",
		},
	)

	// SearchParsesTotal counts parsed admin search strings by outcome.
	SearchParsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_parses_total",
			Help:      "Search strings parsed, by whether structured criteria were found",
		},
		[]string{"result"}, // "structured" / "passthrough"
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		MustRegisterTo(prometheus.DefaultRegisterer)
	})
}

// MustRegisterTo registers all collectors with reg.
func MustRegisterTo(reg prometheus.Registerer) {
	reg.MustRegister(
		RecomputesTotal,
		UpsertsTotal,
		UpsertDuration,
		TriggerDecisionsTotal,
		ReindexRecordsTotal,
		ReindexAbortsTotal,
		SearchParsesTotal,
	)
}
