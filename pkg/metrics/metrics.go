// Package metrics collects Prometheus metrics for the hedge scouting
// pipeline on a private registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics is the full metrics collector for the daemon.
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Analysis metrics
	AnalysesTotal   *prometheus.CounterVec
	AnalysisLatency *prometheus.HistogramVec
	StageLatency    *prometheus.HistogramVec
	SignalsReturned prometheus.Histogram

	// Venue metrics
	VenueRequests   *prometheus.CounterVec
	VenueLatency    *prometheus.HistogramVec
	MarketsFetched  *prometheus.HistogramVec
	RateLimitsTotal *prometheus.CounterVec

	// LLM metrics
	LLMErrors *prometheus.CounterVec

	// Quote metrics
	QuotesTotal *prometheus.CounterVec

	// Cache sync metrics
	CachedMarkets prometheus.Gauge
	SyncRuns      *prometheus.CounterVec
}

// NewPipelineMetrics creates a new metrics collector with its own registry.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	pm := &PipelineMetrics{
		registry: registry,

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgescout_analyses_total",
				Help: "Total number of analysis requests",
			},
			[]string{"status"},
		),
		AnalysisLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hedgescout_analysis_latency_seconds",
				Help:    "End-to-end analysis latency",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~400s
			},
			[]string{},
		),
		StageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hedgescout_stage_latency_seconds",
				Help:    "Individual pipeline stage latency",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"stage"},
		),
		SignalsReturned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hedgescout_signals_returned",
				Help:    "Number of signals returned per analysis",
				Buckets: prometheus.LinearBuckets(0, 5, 11), // 0 to 50
			},
		),

		VenueRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgescout_venue_requests_total",
				Help: "Total number of venue fetches",
			},
			[]string{"venue", "status"},
		),
		VenueLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hedgescout_venue_latency_seconds",
				Help:    "Venue fetch latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"venue"},
		),
		MarketsFetched: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hedgescout_markets_fetched",
				Help:    "Markets returned per venue fetch",
				Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 to 100
			},
			[]string{"venue"},
		),
		RateLimitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgescout_rate_limits_total",
				Help: "Total number of exhausted rate-limit retries",
			},
			[]string{"venue"},
		),

		LLMErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgescout_llm_errors_total",
				Help: "Total number of LLM errors",
			},
			[]string{"component"},
		),

		QuotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgescout_quotes_total",
				Help: "Total number of hedge quote computations",
			},
			[]string{"status"},
		),

		CachedMarkets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hedgescout_cached_markets",
				Help: "Rows currently in the market cache",
			},
		),
		SyncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgescout_sync_runs_total",
				Help: "Total number of market cache sync passes",
			},
			[]string{"status"},
		),
	}

	pm.registerAll()

	return pm
}

func (pm *PipelineMetrics) registerAll() {
	pm.registry.MustRegister(
		pm.AnalysesTotal,
		pm.AnalysisLatency,
		pm.StageLatency,
		pm.SignalsReturned,
		pm.VenueRequests,
		pm.VenueLatency,
		pm.MarketsFetched,
		pm.RateLimitsTotal,
		pm.LLMErrors,
		pm.QuotesTotal,
		pm.CachedMarkets,
		pm.SyncRuns,
	)
}

// Registry returns the prometheus registry.
func (pm *PipelineMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// --- Helper methods for recording metrics ---

// RecordAnalysis records one analysis request.
func (pm *PipelineMetrics) RecordAnalysis(status string, duration time.Duration, signals int) {
	pm.AnalysesTotal.WithLabelValues(status).Inc()
	pm.AnalysisLatency.WithLabelValues().Observe(duration.Seconds())
	if signals >= 0 {
		pm.SignalsReturned.Observe(float64(signals))
	}
}

// RecordStage records one pipeline stage duration.
func (pm *PipelineMetrics) RecordStage(stage string, duration time.Duration) {
	pm.StageLatency.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordVenueFetch records a venue fetch outcome.
func (pm *PipelineMetrics) RecordVenueFetch(venue, status string, duration time.Duration, markets int) {
	pm.VenueRequests.WithLabelValues(venue, status).Inc()
	pm.VenueLatency.WithLabelValues(venue).Observe(duration.Seconds())
	pm.MarketsFetched.WithLabelValues(venue).Observe(float64(markets))
}

// RecordRateLimit records an exhausted rate-limit retry budget.
func (pm *PipelineMetrics) RecordRateLimit(venue string) {
	pm.RateLimitsTotal.WithLabelValues(venue).Inc()
}

// RecordLLMError records an LLM failure by component.
func (pm *PipelineMetrics) RecordLLMError(component string) {
	pm.LLMErrors.WithLabelValues(component).Inc()
}

// RecordQuote records a quote computation.
func (pm *PipelineMetrics) RecordQuote(status string) {
	pm.QuotesTotal.WithLabelValues(status).Inc()
}

// RecordSync records a cache sync pass and the resulting cache size.
func (pm *PipelineMetrics) RecordSync(status string, cached int) {
	pm.SyncRuns.WithLabelValues(status).Inc()
	if cached >= 0 {
		pm.CachedMarkets.Set(float64(cached))
	}
}
