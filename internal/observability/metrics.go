package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline and the risk scoring engine.
type Metrics struct {
	SourceFetches   *prometheus.CounterVec // labels: source, outcome={success,error}
	MarkersIngested prometheus.Counter
	MarkersDeduped  prometheus.Counter
	IngestDuration  prometheus.Histogram
	IngestRunning   prometheus.Gauge

	// Storage metrics.
	StorageBatchWrites prometheus.Counter
	StorageBatchErrors prometheus.Counter

	// Query-side metrics.
	RiskQueries      *prometheus.CounterVec // labels: mode={live,prediction}
	ForecastRequests *prometheus.CounterVec // labels: outcome={success,error}
	CacheLookups     *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SourceFetches,
		m.MarkersIngested,
		m.MarkersDeduped,
		m.IngestDuration,
		m.IngestRunning,
		m.StorageBatchWrites,
		m.StorageBatchErrors,
		m.RiskQueries,
		m.ForecastRequests,
		m.CacheLookups,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SourceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_atlas",
			Name:      "source_fetches_total",
			Help:      "Feed fetch attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		MarkersIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_atlas",
			Name:      "markers_ingested_total",
			Help:      "Total markers written to storage after deduplication.",
		}),
		MarkersDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_atlas",
			Name:      "markers_deduped_total",
			Help:      "Total markers dropped as duplicate ids within a merged batch.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hazard_atlas",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete fetch-merge-store ingestion run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hazard_atlas",
			Name:      "ingest_running",
			Help:      "1 while an ingestion run is in flight, 0 otherwise.",
		}),
		StorageBatchWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_atlas",
			Name:      "storage_batch_writes_total",
			Help:      "Marker batches committed to storage.",
		}),
		StorageBatchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hazard_atlas",
			Name:      "storage_batch_errors_total",
			Help:      "Marker batches dropped after a write failure.",
		}),
		RiskQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_atlas",
			Name:      "risk_queries_total",
			Help:      "Risk score computations by mode.",
		}, []string{"mode"}),
		ForecastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_atlas",
			Name:      "forecast_requests_total",
			Help:      "Weather forecast fetches by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hazard_atlas",
			Name:      "cache_lookups_total",
			Help:      "Fast-path marker cache lookups by result.",
		}, []string{"result"}),
	}
}
