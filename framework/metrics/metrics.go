// Package metrics provides runtime metrics collection for the service
// container and the reactive store. It wraps Prometheus collectors on a
// private registry so isolated application instances never collide.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector provides runtime metrics collection.
type Collector struct {
	registry *prometheus.Registry

	// Container metrics
	resolutions     *prometheus.CounterVec
	resolveLatency  *prometheus.HistogramVec
	dependencyFails *prometheus.CounterVec

	// Store metrics
	dispatchTotal   *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	historyEntries  prometheus.Gauge
	listeners       prometheus.Gauge
}

// NewCollector creates a new runtime metrics collector.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "portal"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "resolutions_total",
			Help:      "Factory executions by service and result",
		},
		[]string{"service", "result"},
	)

	c.resolveLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "resolve_seconds",
			Help:      "Time spent building a service, dependencies included",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"service"},
	)

	c.dependencyFails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "container",
			Name:      "resolve_failures_total",
			Help:      "Resolution failures by service and reason",
		},
		[]string{"service", "reason"},
	)

	c.dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "dispatch_total",
			Help:      "Dispatched actions by type and result",
		},
		[]string{"type", "result"},
	)

	c.dispatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "dispatch_seconds",
			Help:      "Time spent in the dispatch pipeline, notifications included",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		},
		[]string{"type"},
	)

	c.historyEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "history_entries",
			Help:      "Entries currently held in the undo history",
		},
	)

	c.listeners = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "listeners",
			Help:      "Registered listeners, selectors and computed properties",
		},
	)

	c.registry.MustRegister(
		c.resolutions,
		c.resolveLatency,
		c.dependencyFails,
		c.dispatchTotal,
		c.dispatchLatency,
		c.historyEntries,
		c.listeners,
	)

	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler serving this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordResolve records one factory execution.
// reason classifies failures: any error matching one of the given sentinels is
// labelled with that sentinel's message, everything else is "factory".
func (c *Collector) RecordResolve(service string, duration time.Duration, err error, known ...error) {
	c.resolveLatency.WithLabelValues(service).Observe(duration.Seconds())
	if err == nil {
		c.resolutions.WithLabelValues(service, "success").Inc()
		return
	}
	c.resolutions.WithLabelValues(service, "error").Inc()
	reason := "factory"
	for _, k := range known {
		if errors.Is(err, k) {
			reason = k.Error()
			break
		}
	}
	c.dependencyFails.WithLabelValues(service, reason).Inc()
}

// RecordResolveFailure records a resolution that failed before any factory ran
// (missing registration, cycle).
func (c *Collector) RecordResolveFailure(service, reason string) {
	c.dependencyFails.WithLabelValues(service, reason).Inc()
}

// ObserveDispatch records one pass through the dispatch pipeline.
func (c *Collector) ObserveDispatch(actionType string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	c.dispatchTotal.WithLabelValues(actionType, result).Inc()
	c.dispatchLatency.WithLabelValues(actionType).Observe(duration.Seconds())
}

// RecordStoreSize records history length and subscriber count.
func (c *Collector) RecordStoreSize(historyEntries, listeners int) {
	c.historyEntries.Set(float64(historyEntries))
	c.listeners.Set(float64(listeners))
}
