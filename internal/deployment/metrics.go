// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package deployment

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "foxglove_deployment"

const (
	operationDeploy  = "deploy"
	operationUpdate  = "update"
	operationDestroy = "destroy"

	resultSuccess = "success"
	resultError   = "error"
)

// Collector is a prometheus.Collector that collects metrics about
// deployment operations.
type Collector struct {
	operations    *prometheus.CounterVec
	applyDuration prometheus.Histogram
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "The number of deployment operations by kind and result.",
			}, []string{"operation", "result"},
		),
		applyDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "apply_duration_seconds",
				Help:      "The time taken to apply the module parameters.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.operations.Describe(ch)
	c.applyDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.operations.Collect(ch)
	c.applyDuration.Collect(ch)
}

func (c *Collector) recordOperation(operation string, err error) {
	if c == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	c.operations.WithLabelValues(operation, result).Inc()
}

func (c *Collector) observeApply(seconds float64) {
	if c == nil {
		return
	}
	c.applyDuration.Observe(seconds)
}
