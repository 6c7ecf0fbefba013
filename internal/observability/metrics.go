package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the aggregation engine.
type Metrics struct {
	ProviderRequests *prometheus.CounterVec   // labels: source, outcome={success,transport,malformed,error}
	ProviderDuration *prometheus.HistogramVec // labels: source

	SamplesWritten      prometheus.Counter
	AggregationsSkipped prometheus.Counter
	StoreErrors         prometheus.Counter
	PublishErrors       prometheus.Counter

	CycleDuration   prometheus.Histogram
	CyclesOverlap   prometheus.Counter
	LastTemperature *prometheus.GaugeVec // labels: city
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates metrics registered with reg. Tests pass a
// fresh prometheus.NewRegistry() to avoid "already registered" panics.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "temperature_monitor",
			Name:      "provider_requests_total",
			Help:      "Provider fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "temperature_monitor",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		SamplesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "temperature_monitor",
			Name:      "samples_written_total",
			Help:      "Samples persisted to the store.",
		}),
		AggregationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "temperature_monitor",
			Name:      "aggregations_skipped_total",
			Help:      "Location aggregations skipped because every source failed.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "temperature_monitor",
			Name:      "store_errors_total",
			Help:      "Sample store write failures.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "temperature_monitor",
			Name:      "publish_errors_total",
			Help:      "Sample event publish failures.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "temperature_monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete aggregation cycle over all locations.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		CyclesOverlap: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "temperature_monitor",
			Name:      "cycles_overlap_skipped_total",
			Help:      "Ticks dropped because the previous cycle was still running.",
		}),
		LastTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "temperature_monitor",
			Name:      "last_temperature_celsius",
			Help:      "Most recently persisted average temperature per city.",
		}, []string{"city"}),
	}

	reg.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.SamplesWritten,
		m.AggregationsSkipped,
		m.StoreErrors,
		m.PublishErrors,
		m.CycleDuration,
		m.CyclesOverlap,
		m.LastTemperature,
	)

	return m
}
