// Package prometheus exports the cache's metrics through a Prometheus
// registry. Metric families are created lazily on first use, so the facade,
// strategies and cluster can emit any hoard_* name without pre-registration.
package prometheus

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hoardkv/hoard/internal/stats"
)

// Collector implements stats.Collector on a Prometheus registry.
type Collector struct {
	registry prometheus.Registerer

	mu         sync.RWMutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// New creates a collector on the given registry.
// A nil registry falls back to prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		registry:   registry,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// IncCounter increments the named counter by delta.
func (c *Collector) IncCounter(name string, delta int64) {
	c.counter(name).Add(float64(delta))
}

// SetGauge sets the named gauge.
func (c *Collector) SetGauge(name string, value int64) {
	c.gauge(name).Set(float64(value))
}

// ObserveHistogram records a sample in the named histogram.
func (c *Collector) ObserveHistogram(name string, value float64) {
	c.histogram(name).Observe(value)
}

func (c *Collector) counter(name string) prometheus.Counter {
	c.mu.RLock()
	m, ok := c.counters[name]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok = c.counters[name]; ok {
		return m
	}

	m = prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: name})
	if existing, ok := register(c.registry, m); ok {
		if e, ok := existing.(prometheus.Counter); ok {
			m = e
		}
	}
	c.counters[name] = m
	return m
}

func (c *Collector) gauge(name string) prometheus.Gauge {
	c.mu.RLock()
	m, ok := c.gauges[name]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok = c.gauges[name]; ok {
		return m
	}

	m = prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: name})
	if existing, ok := register(c.registry, m); ok {
		if e, ok := existing.(prometheus.Gauge); ok {
			m = e
		}
	}
	c.gauges[name] = m
	return m
}

func (c *Collector) histogram(name string) prometheus.Histogram {
	c.mu.RLock()
	m, ok := c.histograms[name]
	c.mu.RUnlock()
	if ok {
		return m
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok = c.histograms[name]; ok {
		return m
	}

	m = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    name,
		Buckets: prometheus.DefBuckets,
	})
	if existing, ok := register(c.registry, m); ok {
		if e, ok := existing.(prometheus.Histogram); ok {
			m = e
		}
	}
	c.histograms[name] = m
	return m
}

// register registers the metric, adopting a metric another component already
// registered under the same name. The second return is true when an existing
// collector should be used instead. Other registration failures are ignored:
// the unregistered metric still counts, it just won't be scraped.
func register(r prometheus.Registerer, m prometheus.Collector) (prometheus.Collector, bool) {
	err := r.Register(m)
	if err == nil {
		return nil, false
	}
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		return are.ExistingCollector, true
	}
	return nil, false
}
