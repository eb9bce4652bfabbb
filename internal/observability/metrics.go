package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "forecast_parser"

// Metrics holds the Prometheus counters, histograms, and gauges for the forecast pipeline.
type Metrics struct {
	FilesDecoded     prometheus.Counter
	DecodeErrors     *prometheus.CounterVec // labels: kind={decode,unknown_parameter,resolve,read,invalid_record}
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Per-file processing metrics.
	RecordsPerFile         prometheus.Histogram
	FileProcessingDuration prometheus.Histogram

	// Station resolution.
	StationCache *prometheus.CounterVec // labels: result={hit,miss}

	// Synthetic input generation.
	MockFilesGenerated prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FilesDecoded,
		m.DecodeErrors,
		m.RecordsPublished,
		m.PublishErrors,
		m.PipelineRunning,
		m.RecordsPerFile,
		m.FileProcessingDuration,
		m.StationCache,
		m.MockFilesGenerated,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FilesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_decoded_total",
			Help:      "Total forecast files decoded successfully.",
		}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Forecast files rejected, by failure kind.",
		}, []string{"kind"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Total forecast records written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total failed publish attempts.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the folder scanner is active, 0 when shut down.",
		}),
		RecordsPerFile: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_per_file",
			Help:      "Number of station records emitted per forecast file.",
			Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000, 2500},
		}),
		FileProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_processing_duration_seconds",
			Help:      "Duration of a complete read-decode-publish cycle for one file.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		StationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_cache_total",
			Help:      "Nearest-station cache lookups by result.",
		}, []string{"result"}),
		MockFilesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mock_files_generated_total",
			Help:      "Synthetic forecast files written from templates.",
		}),
	}
}
