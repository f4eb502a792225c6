package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "adx_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adx_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// AnalysesTotal counts finished analyses by source (upload, api, kafka, cli).
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adx_analyses_total",
			Help: "Total number of completed ADX analyses",
		},
		[]string{"source"},
	)

	AnalysisErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adx_analysis_errors_total",
			Help: "Total number of rejected or failed analyses",
		},
		[]string{"source", "reason"},
	)

	ComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adx_compute_duration_seconds",
			Help:    "Time spent computing the ADX table",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
	)

	SeriesLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adx_series_bars",
			Help:    "Number of bars per analyzed series",
			Buckets: prometheus.ExponentialBuckets(8, 2, 12),
		},
	)
)

// ObserveAnalysis records a successful analysis of n bars.
func ObserveAnalysis(source string, bars int, seconds float64) {
	AnalysesTotal.WithLabelValues(source).Inc()
	SeriesLength.Observe(float64(bars))
	ComputeDuration.Observe(seconds)
}

// ObserveFailure records a rejected analysis.
func ObserveFailure(source, reason string) {
	AnalysisErrorsTotal.WithLabelValues(source, reason).Inc()
}
