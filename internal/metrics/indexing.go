package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing Prometheus metrics.
var (
	DocsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textdex",
			Name:      "docs_indexed_total",
			Help:      "Total number of documents indexed",
		},
		[]string{"index"},
	)

	DocsDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textdex",
			Name:      "docs_deleted_total",
			Help:      "Total number of documents deleted",
		},
		[]string{"index"},
	)

	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textdex",
			Name:      "refreshes_total",
			Help:      "Total number of index refreshes",
		},
		[]string{"index"},
	)

	SegmentsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "textdex",
			Name:      "segments",
			Help:      "Live segments per index",
		},
		[]string{"index"},
	)
)

var indexMetricsRegistered bool

// RegisterIndexMetrics registers Prometheus indexing metrics. Must be called once from main.
func RegisterIndexMetrics() {
	if indexMetricsRegistered {
		return
	}
	prometheus.MustRegister(DocsIndexedTotal)
	prometheus.MustRegister(DocsDeletedTotal)
	prometheus.MustRegister(RefreshesTotal)
	prometheus.MustRegister(SegmentsGauge)
	indexMetricsRegistered = true
}
