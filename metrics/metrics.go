// Package metrics provides Prometheus metrics for skemadb collections.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus metrics recorded by a Collection.
type Collector struct {
	// Operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Validation metrics
	ValidationFailures *prometheus.CounterVec

	// Store metrics
	StoreLatency prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "skemadb",
				Name:      "operations_total",
				Help:      "Total number of collection operations",
			},
			[]string{"namespace", "op", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "skemadb",
				Name:      "operation_duration_seconds",
				Help:      "Collection operation duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"namespace", "op"},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "skemadb",
				Name:      "validation_failures_total",
				Help:      "Writes rejected by schema or path validation",
			},
			[]string{"namespace", "op", "code"},
		),
		StoreLatency: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "skemadb",
				Name:      "store_latency_seconds",
				Help:      "Last measured store round-trip latency",
			},
		),
	}
}

// Result labels for OperationsTotal.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultError    = "error"
	ResultNotFound = "not_found"
)

// ObserveOperation records one finished operation.
func (c *Collector) ObserveOperation(namespace, op, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.OperationsTotal.WithLabelValues(namespace, op, result).Inc()
	c.OperationDuration.WithLabelValues(namespace, op).Observe(d.Seconds())
}

// ObserveValidationFailure records a rejected write by issue code.
func (c *Collector) ObserveValidationFailure(namespace, op, code string) {
	if c == nil {
		return
	}
	c.ValidationFailures.WithLabelValues(namespace, op, code).Inc()
}

// SetLatency records the most recent latency probe.
func (c *Collector) SetLatency(d time.Duration) {
	if c == nil {
		return
	}
	c.StoreLatency.Set(d.Seconds())
}
