package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casafind",
			Name:      "search_requests_total",
			Help:      "Total number of search pipeline runs",
		},
		[]string{"status"}, // "completed" / "degraded" / "error"
	)

	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "casafind",
			Name:      "search_stage_duration_seconds",
			Help:      "Search pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	SearchRelaxationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casafind",
			Name:      "search_relaxations_total",
			Help:      "Total relaxation steps applied during filtering",
		},
		[]string{"step"},
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casafind",
			Name:      "search_degraded_total",
			Help:      "Total searches that fell back to a degraded mode",
		},
		[]string{"reason"},
	)

	ExtractionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casafind",
			Name:      "extraction_requests_total",
			Help:      "Total number of criteria extraction requests",
		},
		[]string{"status"}, // "success" / "error"
	)

	ExtractionFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "casafind",
			Name:      "extraction_fallbacks_total",
			Help:      "Total extractions that fell back to residual-only criteria",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers search pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchStageDuration)
	prometheus.MustRegister(SearchRelaxationsTotal)
	prometheus.MustRegister(SearchDegradedTotal)
	prometheus.MustRegister(ExtractionRequestsTotal)
	prometheus.MustRegister(ExtractionFallbacksTotal)
	pipelineMetricsRegistered = true
}
