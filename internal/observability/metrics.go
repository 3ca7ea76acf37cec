// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every engine metric.
const Namespace = "avail_risk"

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	registry *prometheus.Registry

	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Fitting metrics
	FitsTotal      *prometheus.CounterVec
	FitCacheHits   prometheus.Counter
	FitCacheMisses prometheus.Counter

	// Simulation metrics
	SimulationTrials   prometheus.Counter
	SimulationDuration prometheus.Histogram

	// Dataset metrics
	DatasetRecords  prometheus.Gauge
	DatasetEntities prometheus.Gauge
}

// NewMetrics creates metrics registered on a private registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = Namespace
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total number of engine operations by name and status",
		}, []string{"operation", "status"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"operation"}),

		FitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fitting",
			Name:      "fits_total",
			Help:      "Total number of distribution fits by selected family and outcome",
		}, []string{"family", "outcome"}),
		FitCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fitting",
			Name:      "cache_hits_total",
			Help:      "Total number of fit cache hits",
		}),
		FitCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fitting",
			Name:      "cache_misses_total",
			Help:      "Total number of fit cache misses",
		}),

		SimulationTrials: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trials_total",
			Help:      "Total number of portfolio trials run",
		}),
		SimulationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "run_duration_seconds",
			Help:      "Duration of portfolio simulation runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),

		DatasetRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "records",
			Help:      "Number of availability records loaded",
		}),
		DatasetEntities: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "entities",
			Help:      "Number of distinct entities loaded",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordOperation records an engine operation outcome and its duration.
func (m *Metrics) RecordOperation(operation string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// RecordFit records a fit and whether it was served from the cache.
func (m *Metrics) RecordFit(family, outcome string, cacheHit bool) {
	if cacheHit {
		m.FitCacheHits.Inc()
		return
	}
	m.FitCacheMisses.Inc()
	m.FitsTotal.WithLabelValues(family, outcome).Inc()
}

// RecordSimulation records a completed portfolio run.
func (m *Metrics) RecordSimulation(trials int, d time.Duration) {
	m.SimulationTrials.Add(float64(trials))
	m.SimulationDuration.Observe(d.Seconds())
}

// UpdateDataset updates the dataset size gauges.
func (m *Metrics) UpdateDataset(records, entities int) {
	m.DatasetRecords.Set(float64(records))
	m.DatasetEntities.Set(float64(entities))
}
