package hoard

import (
	"time"

	"go.uber.org/zap"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/codec"
	"github.com/hoardkv/hoard/internal/codec/jsoncodec"
	"github.com/hoardkv/hoard/internal/lock"
	"github.com/hoardkv/hoard/internal/stats"
)

// Option configures a Cache.
type Option interface {
	apply(*options)
}

// options holds the cache configuration.
type options struct {
	backend        backend.Backend
	codec          codec.Codec
	locker         lock.Locker
	namespace      string
	defaultTTL     time.Duration
	localCacheTTL  time.Duration
	localCacheSize int
	lockTimeout    time.Duration
	backendTimeout time.Duration
	stats          stats.Collector
	logger         *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		codec:          jsoncodec.New(),
		namespace:      "cache",
		defaultTTL:     time.Hour,
		localCacheTTL:  time.Minute,
		localCacheSize: 1000,
		lockTimeout:    30 * time.Second,
		backendTimeout: 5 * time.Second,
		stats:          stats.NewNoop(),
		logger:         zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithBackend sets the remote cache backend to use.
func WithBackend(b backend.Backend) Option {
	return optionFunc(func(o *options) {
		o.backend = b
	})
}

// WithCodec sets the value codec.
// If not set, JSON encoding is used.
func WithCodec(c codec.Codec) Option {
	return optionFunc(func(o *options) {
		o.codec = c
	})
}

// WithLocker sets the distributed lock provider used by GetOrSet.
// If not set, an in-process locker is used, which only protects
// against stampedes within a single process.
func WithLocker(l lock.Locker) Option {
	return optionFunc(func(o *options) {
		o.locker = l
	})
}

// WithNamespace sets the key namespace prefix.
// Default is "cache".
func WithNamespace(ns string) Option {
	return optionFunc(func(o *options) {
		if ns != "" {
			o.namespace = ns
		}
	})
}

// WithDefaultTTL sets the TTL applied when Set is called with ttl 0.
// Default is one hour.
func WithDefaultTTL(ttl time.Duration) Option {
	return optionFunc(func(o *options) {
		o.defaultTTL = ttl
	})
}

// WithLocalCacheTTL sets how long entries stay in the in-process tier.
// Default is one minute.
func WithLocalCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(o *options) {
		o.localCacheTTL = ttl
	})
}

// WithLocalCacheSize sets the in-process tier capacity in entries.
// A size of 0 disables the local tier. Default is 1000.
func WithLocalCacheSize(size int) Option {
	return optionFunc(func(o *options) {
		o.localCacheSize = size
	})
}

// WithLockTimeout sets how long GetOrSet waits for the compute lock.
// Default is 30 seconds.
func WithLockTimeout(timeout time.Duration) Option {
	return optionFunc(func(o *options) {
		o.lockTimeout = timeout
	})
}

// WithBackendTimeout bounds each individual backend call so a hung backend
// cannot block callers indefinitely. A timeout of 0 disables the bound and
// relies on the caller's context alone. Default is 5 seconds.
func WithBackendTimeout(timeout time.Duration) Option {
	return optionFunc(func(o *options) {
		o.backendTimeout = timeout
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, logging is disabled.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}
