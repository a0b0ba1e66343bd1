package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the core generation metrics shared by the engine, the
// batch runner, and the publishers.
type Metrics struct {
	// Generation metrics
	DatasetsGenerated  *prometheus.CounterVec
	SamplesGenerated   prometheus.Counter
	GenerationDuration *prometheus.HistogramVec
	ParseErrors        *prometheus.CounterVec
	ResamplePasses     *prometheus.CounterVec

	// Batch metrics
	BatchJobsActive  prometheus.Gauge
	BatchJobDuration prometheus.Histogram

	// NATS publisher metrics
	NATSConnected    prometheus.Gauge
	NATSPublished    prometheus.Counter
	NATSReconnects   prometheus.Counter
	NATSPublishError prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all core metrics
func NewMetrics() *Metrics {
	return &Metrics{
		DatasetsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chronosynth",
				Subsystem: "engine",
				Name:      "datasets_total",
				Help:      "Total number of datasets generated",
			},
			[]string{"status"},
		),

		SamplesGenerated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chronosynth",
				Subsystem: "engine",
				Name:      "samples_total",
				Help:      "Total number of samples produced",
			},
		),

		GenerationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "chronosynth",
				Subsystem: "engine",
				Name:      "duration_seconds",
				Help:      "Dataset generation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		ParseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chronosynth",
				Subsystem: "parser",
				Name:      "errors_total",
				Help:      "Total number of keyframe parse failures",
			},
			[]string{"kind"},
		),

		ResamplePasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "chronosynth",
				Subsystem: "resample",
				Name:      "passes_total",
				Help:      "Total number of resampling passes",
			},
			[]string{"method"},
		),

		BatchJobsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "chronosynth",
				Subsystem: "batch",
				Name:      "jobs_active",
				Help:      "Number of batch jobs currently running",
			},
		),

		BatchJobDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "chronosynth",
				Subsystem: "batch",
				Name:      "job_duration_seconds",
				Help:      "Batch job duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "chronosynth",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chronosynth",
				Subsystem: "nats",
				Name:      "published_total",
				Help:      "Total number of series documents published",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chronosynth",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSPublishError: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "chronosynth",
				Subsystem: "nats",
				Name:      "publish_errors_total",
				Help:      "Total number of failed publishes",
			},
		),
	}
}

// RecordDataset increments the dataset counter with a success/error status
func (c *Metrics) RecordDataset(status string) {
	c.DatasetsGenerated.WithLabelValues(status).Inc()
}

// RecordSamples adds to the sample counter
func (c *Metrics) RecordSamples(n int) {
	c.SamplesGenerated.Add(float64(n))
}

// RecordGenerationDuration records time spent in one generation stage
func (c *Metrics) RecordGenerationDuration(stage string, duration time.Duration) {
	c.GenerationDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordParseError increments the parse error counter
func (c *Metrics) RecordParseError(kind string) {
	c.ParseErrors.WithLabelValues(kind).Inc()
}

// RecordResample increments the resample pass counter
func (c *Metrics) RecordResample(method string) {
	c.ResamplePasses.WithLabelValues(method).Inc()
}

// BatchJobStarted marks a batch job as in flight
func (c *Metrics) BatchJobStarted() {
	c.BatchJobsActive.Inc()
}

// BatchJobFinished marks a batch job complete and records its duration
func (c *Metrics) BatchJobFinished(duration time.Duration) {
	c.BatchJobsActive.Dec()
	c.BatchJobDuration.Observe(duration.Seconds())
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}
