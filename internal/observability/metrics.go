package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a batch
// run.
type Metrics struct {
	RunActive     prometheus.Gauge
	StageDuration *prometheus.HistogramVec // labels: stage={ingest,usage,temperatures,smooth,render,export}

	ReadingsIngested *prometheus.CounterVec // labels: utility
	PointsExported   prometheus.Counter

	// Weather provider metrics.
	ProviderRequests    *prometheus.CounterVec   // labels: provider, outcome={success,error,empty}
	ProviderAPIDuration *prometheus.HistogramVec // labels: provider
	CacheLookups        *prometheus.CounterVec   // labels: provider, result={hit,miss}
}

// NewMetrics creates and registers all run metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "utility_etl",
			Name:      "run_active",
			Help:      "1 while a batch run is in progress, 0 once finished.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "utility_etl",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage per utility.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		ReadingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "utility_etl",
			Name:      "readings_ingested_total",
			Help:      "Meter readings read from CSV files, by utility.",
		}, []string{"utility"}),
		PointsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "utility_etl",
			Name:      "points_exported_total",
			Help:      "Series points published to the Kafka sink.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "utility_etl",
			Name:      "provider_requests_total",
			Help:      "Weather provider lookups by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "utility_etl",
			Name:      "provider_api_duration_seconds",
			Help:      "Live provider API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "utility_etl",
			Name:      "cache_lookups_total",
			Help:      "Durable response cache lookups by provider and result.",
		}, []string{"provider", "result"}),
	}

	prometheus.MustRegister(
		m.RunActive,
		m.StageDuration,
		m.ReadingsIngested,
		m.PointsExported,
		m.ProviderRequests,
		m.ProviderAPIDuration,
		m.CacheLookups,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// construct as many instances as they like without "already registered"
// panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunActive:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "utility_etl", Name: "run_active"}),
		StageDuration:       prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "utility_etl", Name: "stage_duration_seconds"}, []string{"stage"}),
		ReadingsIngested:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "utility_etl", Name: "readings_ingested_total"}, []string{"utility"}),
		PointsExported:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "utility_etl", Name: "points_exported_total"}),
		ProviderRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "utility_etl", Name: "provider_requests_total"}, []string{"provider", "outcome"}),
		ProviderAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "utility_etl", Name: "provider_api_duration_seconds"}, []string{"provider"}),
		CacheLookups:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "utility_etl", Name: "cache_lookups_total"}, []string{"provider", "result"}),
	}
}
