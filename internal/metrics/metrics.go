// Package metrics exposes Prometheus collectors for the ETL pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for one
// pipeline process.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	PeriodsProcessed prometheus.Counter
	PeriodsSkipped   *prometheus.CounterVec // labels: reason={fetch,unpack,canceled}
	FilesProcessed   prometheus.Counter
	FilesSkipped     *prometheus.CounterVec // labels: reason={unreadable,region,schema,empty}

	RowsNormalized prometheus.Counter
	RowsDropped    prometheus.Counter
	RowsLoaded     prometheus.Counter
	RowLoadErrors  prometheus.Counter
	DailyUpserts   prometheus.Counter

	FileDuration prometheus.Histogram
}

// New creates and registers all pipeline metrics with the default Prometheus
// registry.
func New() *Metrics {
	m := build()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.PeriodsProcessed,
		m.PeriodsSkipped,
		m.FilesProcessed,
		m.FilesSkipped,
		m.RowsNormalized,
		m.RowsDropped,
		m.RowsLoaded,
		m.RowLoadErrors,
		m.DailyUpserts,
		m.FileDuration,
	)
	return m
}

// NewForTesting creates Metrics backed by unregistered collectors so tests
// can construct them repeatedly without "already registered" panics.
func NewForTesting() *Metrics {
	return build()
}

func build() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is active, 0 otherwise.",
		}),
		PeriodsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periods_processed_total",
			Help:      "Reporting periods fully processed.",
		}),
		PeriodsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "periods_skipped_total",
			Help:      "Reporting periods skipped, by reason.",
		}, []string{"reason"}),
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Raw files normalized and loaded.",
		}),
		FilesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_skipped_total",
			Help:      "Raw files skipped, by reason.",
		}, []string{"reason"}),
		RowsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_normalized_total",
			Help:      "Canonical hourly records produced by the normalizer.",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Raw rows rejected for missing timestamp or station identity.",
		}),
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Hourly rows written to the store.",
		}),
		RowLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_load_errors_total",
			Help:      "Rows that failed to insert or upsert and were skipped.",
		}),
		DailyUpserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_upserts_total",
			Help:      "Daily aggregate rows upserted.",
		}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_processing_duration_seconds",
			Help:      "Duration of one normalize-enrich-load cycle for a raw file.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}
