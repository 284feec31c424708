package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

// Collector holds the Prometheus metrics of the store layer.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	StoreOperations    *prometheus.CounterVec
	StoreDuration      *prometheus.HistogramVec
	BreakerTransitions *prometheus.CounterVec
	RecordsLoaded      *prometheus.CounterVec
}

// NewCollector creates a metrics collector on its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	storeOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of store operations",
		},
		[]string{"backend", "operation", "outcome"},
	)

	storeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	breakerTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state changes",
		},
		[]string{"backend", "from", "to"},
	)

	recordsLoaded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_loaded_total",
			Help:      "Persons and edges read by full tree loads",
		},
		[]string{"backend", "kind"},
	)

	registry.MustRegister(
		storeOperations,
		storeDuration,
		breakerTransitions,
		recordsLoaded,
	)

	return &Collector{
		registry:           registry,
		StoreOperations:    storeOperations,
		StoreDuration:      storeDuration,
		BreakerTransitions: breakerTransitions,
		RecordsLoaded:      recordsLoaded,
	}
}

// ObserveStore records one store operation.
func (c *Collector) ObserveStore(backend, operation, outcome string, d time.Duration) {
	c.StoreOperations.WithLabelValues(backend, operation, outcome).Inc()
	c.StoreDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
}

// ObserveLoad records the size of a full tree load.
func (c *Collector) ObserveLoad(backend string, persons, edges int) {
	c.RecordsLoaded.WithLabelValues(backend, "person").Add(float64(persons))
	c.RecordsLoaded.WithLabelValues(backend, "edge").Add(float64(edges))
}

// ObserveBreaker records a circuit breaker state change.
func (c *Collector) ObserveBreaker(backend, from, to string) {
	c.BreakerTransitions.WithLabelValues(backend, from, to).Inc()
}

// Registry returns the Prometheus registry for this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
