// Package metrics exposes Prometheus counters for binding discovery and the
// binding cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the binder metrics. It owns its registry so several
// collectors can coexist in one process. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	CacheHits           prometheus.Counter
	CacheMisses         prometheus.Counter
	CacheEvictions      prometheus.Counter
	BindingsBuilt       *prometheus.CounterVec
	DiscoveryDuration   *prometheus.HistogramVec
	ConfigurationErrors prometheus.Counter
}

// NewCollector creates a collector with the given namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of binding cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of binding cache misses",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of idle bindings evicted from the cache",
		}),
		BindingsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bindings_built_total",
			Help:      "Total number of bindings discovered",
		}, []string{"kind"}),
		DiscoveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "binding_discovery_seconds",
			Help:      "Binding discovery duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"kind"}),
		ConfigurationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "configuration_errors_total",
			Help:      "Total number of types rejected during registration or discovery",
		}),
	}

	registry.MustRegister(
		c.CacheHits,
		c.CacheMisses,
		c.CacheEvictions,
		c.BindingsBuilt,
		c.DiscoveryDuration,
		c.ConfigurationErrors,
	)

	return c
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}

	return c.registry
}

// Hit records a cache hit.
func (c *Collector) Hit() {
	if c == nil {
		return
	}

	c.CacheHits.Inc()
}

// Miss records a cache miss.
func (c *Collector) Miss() {
	if c == nil {
		return
	}

	c.CacheMisses.Inc()
}

// Evicted records n idle evictions.
func (c *Collector) Evicted(n int) {
	if c == nil || n <= 0 {
		return
	}

	c.CacheEvictions.Add(float64(n))
}

// BindingBuilt records a successful discovery of the given kind.
func (c *Collector) BindingBuilt(kind string, took time.Duration) {
	if c == nil {
		return
	}

	c.BindingsBuilt.WithLabelValues(kind).Inc()
	c.DiscoveryDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// ConfigurationError records a rejected type.
func (c *Collector) ConfigurationError() {
	if c == nil {
		return
	}

	c.ConfigurationErrors.Inc()
}
