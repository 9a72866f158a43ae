package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prioritisation pipeline.
type Metrics struct {
	RecordsRead     prometheus.Counter
	RecordsTiered   *prometheus.CounterVec // label: tier
	BatchDuration   prometheus.Histogram
	PipelineRunning prometheus.Gauge

	// Data-quality metrics.
	MalformedFields prometheus.Counter
	IntegrityErrors prometheus.Counter

	// Enrichment metrics.
	EnrichmentRequests *prometheus.CounterVec   // labels: provider={elevation,vulnerability}, outcome={success,error,empty}
	EnrichmentCache    *prometheus.CounterVec   // labels: layer={memory,sqlite}, result={hit,miss}
	ProviderDuration   *prometheus.HistogramVec // label: provider
	RecordsFailed      prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prioritiser",
			Name:      "records_read_total",
			Help:      "Total waterpoint records read from the source.",
		}),
		RecordsTiered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prioritiser",
			Name:      "records_tiered_total",
			Help:      "Tier assignments by tier.",
		}, []string{"tier"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "prioritiser",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete read-enrich-join-tier-write run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1200, 3600},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prioritiser",
			Name:      "pipeline_running",
			Help:      "1 while a batch is in flight, 0 otherwise.",
		}),
		MalformedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prioritiser",
			Name:      "malformed_fields_total",
			Help:      "Numeric fields coerced to absent because they could not be parsed.",
		}),
		IntegrityErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prioritiser",
			Name:      "integrity_errors_total",
			Help:      "Fatal data-integrity errors (duplicate waterpoint ids).",
		}),
		EnrichmentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prioritiser",
			Name:      "enrichment_requests_total",
			Help:      "External enrichment calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		EnrichmentCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prioritiser",
			Name:      "enrichment_cache_total",
			Help:      "Enrichment cache lookups by layer and result.",
		}, []string{"layer", "result"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "prioritiser",
			Name:      "provider_request_duration_seconds",
			Help:      "External provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		RecordsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prioritiser",
			Name:      "enrichment_records_failed_total",
			Help:      "Records whose enrichment failed entirely and fed the Unknown gate.",
		}),
	}

	prometheus.MustRegister(
		m.RecordsRead,
		m.RecordsTiered,
		m.BatchDuration,
		m.PipelineRunning,
		m.MalformedFields,
		m.IntegrityErrors,
		m.EnrichmentRequests,
		m.EnrichmentCache,
		m.ProviderDuration,
		m.RecordsFailed,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// parallel tests do not trip "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsRead:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "prioritiser", Name: "records_read_total"}),
		RecordsTiered:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "prioritiser", Name: "records_tiered_total"}, []string{"tier"}),
		BatchDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "prioritiser", Name: "batch_duration_seconds"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "prioritiser", Name: "pipeline_running"}),
		MalformedFields:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "prioritiser", Name: "malformed_fields_total"}),
		IntegrityErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "prioritiser", Name: "integrity_errors_total"}),
		EnrichmentRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "prioritiser", Name: "enrichment_requests_total"}, []string{"provider", "outcome"}),
		EnrichmentCache:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "prioritiser", Name: "enrichment_cache_total"}, []string{"layer", "result"}),
		ProviderDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "prioritiser", Name: "provider_request_duration_seconds"}, []string{"provider"}),
		RecordsFailed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "prioritiser", Name: "enrichment_records_failed_total"}),
	}
}
