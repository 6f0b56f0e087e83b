// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Facade metrics.
	MetricHits           = "hoard_hits_total"
	MetricMisses         = "hoard_misses_total"
	MetricSets           = "hoard_sets_total"
	MetricDeletes        = "hoard_deletes_total"
	MetricEvictions      = "hoard_evictions_total"
	MetricLocalCacheSize = "hoard_local_cache_size"
	MetricBackendErrors  = "hoard_backend_errors_total"
	MetricDecodeErrors   = "hoard_decode_errors_total"
	MetricLockTimeouts   = "hoard_lock_timeouts_total"

	// Strategy metrics.
	MetricRefreshes  = "hoard_refreshes_total"
	MetricPrefetches = "hoard_prefetches_total"
	MetricPromotions = "hoard_tier_promotions_total"

	// Cluster metrics.
	MetricClusterNodeErrors = "hoard_cluster_node_errors_total"
	MetricClusterFanouts    = "hoard_cluster_fanouts_total"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
