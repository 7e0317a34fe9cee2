package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rag_local"

// Metrics holds the Prometheus counters, histograms, and gauges for classification runs.
type Metrics struct {
	ObservationsRead       prometheus.Counter
	ObservationsClassified prometheus.Counter
	ClassifyErrors         prometheus.Counter
	PipelineRunning        prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Matching metrics.
	MatchOutcomes *prometheus.CounterVec // labels: method={semantic,keyword,fuzzy,rule,none}

	// Model server metrics.
	LLMRequests  *prometheus.CounterVec   // labels: operation={chat,embed}, outcome={success,error,empty}
	LLMDuration  *prometheus.HistogramVec // labels: operation={chat,embed}
	EmbedCache   *prometheus.CounterVec   // labels: result={hit,miss}
	RoleFailures *prometheus.CounterVec   // labels: role
	AIEnabled    prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ObservationsRead,
		m.ObservationsClassified,
		m.ClassifyErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.MatchOutcomes,
		m.LLMRequests,
		m.LLMDuration,
		m.EmbedCache,
		m.RoleFailures,
		m.AIEnabled,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already registered"
// panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ObservationsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_read_total",
			Help:      "Total observations read from input spreadsheets.",
		}),
		ObservationsClassified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_classified_total",
			Help:      "Total observations classified and handed to the loaders.",
		}),
		ClassifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classify_errors_total",
			Help:      "Total observations skipped because classification failed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a classification run is active, 0 otherwise.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of observations per extracted batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-classify-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		MatchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_outcomes_total",
			Help:      "Classifications by the method that produced them.",
		}, []string{"method"}),
		LLMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Model server requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		LLMDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Model server request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		EmbedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embed_cache_total",
			Help:      "Embedding cache lookups by result.",
		}, []string{"result"}),
		RoleFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_failures_total",
			Help:      "Role fan-out tasks that returned an error.",
		}, []string{"role"}),
		AIEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ai_enabled",
			Help:      "1 when model suggestions are enabled, 0 otherwise.",
		}),
	}
}
