package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textdex",
			Name:      "searches_total",
			Help:      "Total number of searches by outcome",
		},
		[]string{"status"}, // "ok" / "timed_out" / "rejected" / "error"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "textdex",
			Name:      "search_duration_seconds",
			Help:      "Search query phase duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	SearchesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "textdex",
			Name:      "searches_active",
			Help:      "Searches currently executing",
		},
	)

	SearchEarlyTerminationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "textdex",
			Name:      "search_early_terminations_total",
			Help:      "Searches that terminated collection early",
		},
	)

	RequestCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "textdex",
			Name:      "request_cache_total",
			Help:      "Request cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchesActive)
	prometheus.MustRegister(SearchEarlyTerminationsTotal)
	prometheus.MustRegister(RequestCacheTotal)
	searchMetricsRegistered = true
}
