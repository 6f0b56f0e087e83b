// Package hoard provides a two-tier distributed cache: a small in-process
// tier in front of a shared remote backend such as Redis.
//
// Example usage:
//
//	client, err := redisbackend.New(redisbackend.Config{Addr: "localhost:6379"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache, err := hoard.New(
//	    hoard.WithBackend(client),
//	    hoard.WithNamespace("myapp"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
//	if err := cache.Set(ctx, "user:1", user, time.Hour); err != nil {
//	    log.Fatal(err)
//	}
//	var got User
//	found, err := cache.Get(ctx, "user:1", &got)
package hoard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/codec"
	"github.com/hoardkv/hoard/internal/keyspace"
	"github.com/hoardkv/hoard/internal/localtier"
	"github.com/hoardkv/hoard/internal/lock"
	"github.com/hoardkv/hoard/internal/lock/memlock"
	"github.com/hoardkv/hoard/internal/stats"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the cache has been closed.
	ErrClosed = errors.New("hoard: cache closed")

	// ErrNoBackend indicates no backend was provided.
	ErrNoBackend = errors.New("hoard: no backend provided")

	// ErrLockTimeout indicates the compute lock could not be acquired in time.
	ErrLockTimeout = errors.New("hoard: lock acquisition timed out")
)

// tagTTL bounds how long tag membership sets live in the backend.
const tagTTL = 24 * time.Hour

// Cache is the two-tier cache facade.
// A Cache is safe for concurrent use by multiple goroutines.
type Cache struct {
	backend        backend.Backend
	codec          codec.Codec
	locker         lock.Locker
	keys           *keyspace.Namespacer
	local          *localtier.Tier
	localTTL       time.Duration
	defaultTTL     time.Duration
	lockTimeout    time.Duration
	backendTimeout time.Duration
	stats          stats.Collector
	logger         *zap.Logger
	closed         atomic.Bool

	hits         atomic.Uint64
	misses       atomic.Uint64
	localHits    atomic.Uint64
	sets         atomic.Uint64
	deletes      atomic.Uint64
	lockTimeouts atomic.Uint64
}

// New creates a new Cache with the given options.
// A backend is required; everything else has sensible defaults.
func New(opts ...Option) (*Cache, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.backend == nil {
		return nil, ErrNoBackend
	}
	if cfg.locker == nil {
		cfg.locker = memlock.New()
	}

	c := &Cache{
		backend:        cfg.backend,
		codec:          cfg.codec,
		locker:         cfg.locker,
		keys:           keyspace.New(cfg.namespace),
		localTTL:       cfg.localCacheTTL,
		defaultTTL:     cfg.defaultTTL,
		lockTimeout:    cfg.lockTimeout,
		backendTimeout: cfg.backendTimeout,
		stats:          cfg.stats,
		logger:         cfg.logger,
	}

	if cfg.localCacheSize > 0 {
		local, err := localtier.New(cfg.localCacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating local tier: %w", err)
		}
		c.local = local
	}

	c.logger.Debug("cache initialized",
		zap.String("namespace", cfg.namespace),
		zap.String("codec", c.codec.Name()),
		zap.Int("localCacheSize", cfg.localCacheSize),
	)

	return c, nil
}

// Get retrieves the value for key and decodes it into dest, which must be a
// pointer. It returns false on a miss. Backend failures and undecodable
// values are treated as misses so a degraded backend or a corrupt entry does
// not take readers down with it.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}

	nsKey := c.keys.Key(key)

	if c.local != nil {
		if data, ok := c.local.Get(nsKey); ok {
			if err := c.codec.Unmarshal(data, dest); err != nil {
				// A value the codec cannot decode is useless; drop it
				// and fall through to the backend.
				c.local.Delete(nsKey)
				c.stats.IncCounter(stats.MetricDecodeErrors, 1)
				c.logger.Warn("corrupt local value dropped", zap.String("key", nsKey), zap.Error(err))
			} else {
				c.localHits.Add(1)
				c.hits.Add(1)
				c.stats.IncCounter(stats.MetricHits, 1)
				return true, nil
			}
		}
	}

	bctx, cancel := c.backendCtx(ctx)
	data, err := c.backend.Get(bctx, nsKey)
	cancel()
	if err != nil {
		c.misses.Add(1)
		c.stats.IncCounter(stats.MetricMisses, 1)
		if !errors.Is(err, backend.ErrNotFound) {
			c.stats.IncCounter(stats.MetricBackendErrors, 1)
			c.logger.Warn("backend get failed", zap.String("key", nsKey), zap.Error(err))
		}
		return false, nil
	}

	if err := c.codec.Unmarshal(data, dest); err != nil {
		c.stats.IncCounter(stats.MetricDecodeErrors, 1)
		c.logger.Warn("corrupt cached value dropped", zap.String("key", nsKey), zap.Error(err))
		if delErr := c.delBackend(ctx, nsKey); delErr != nil {
			c.logger.Warn("deleting corrupt value failed", zap.String("key", nsKey), zap.Error(delErr))
		}
		c.misses.Add(1)
		c.stats.IncCounter(stats.MetricMisses, 1)
		return false, nil
	}

	if c.local != nil {
		c.local.Set(nsKey, data, c.localTTL)
		c.stats.SetGauge(stats.MetricLocalCacheSize, int64(c.local.Len()))
	}

	c.hits.Add(1)
	c.stats.IncCounter(stats.MetricHits, 1)
	return true, nil
}

// Set stores the value under key. A ttl of 0 uses the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.SetWithTags(ctx, key, value, ttl)
}

// SetWithTags stores the value and associates it with the given tags, so it
// can later be removed by InvalidateTags.
func (c *Cache) SetWithTags(ctx context.Context, key string, value any, ttl time.Duration, tags ...string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	nsKey := c.keys.Key(key)

	data, err := c.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}

	bctx, cancel := c.backendCtx(ctx)
	err = c.backend.Set(bctx, nsKey, data, ttl)
	cancel()
	if err != nil {
		c.stats.IncCounter(stats.MetricBackendErrors, 1)
		return fmt.Errorf("storing value: %w", err)
	}

	if c.local != nil {
		c.local.Set(nsKey, data, c.localTTL)
		c.stats.SetGauge(stats.MetricLocalCacheSize, int64(c.local.Len()))
	}

	for _, tag := range tags {
		if err := c.addToTag(ctx, tag, nsKey); err != nil {
			c.logger.Warn("tag registration failed",
				zap.String("tag", tag), zap.String("key", nsKey), zap.Error(err))
		}
	}

	c.sets.Add(1)
	c.stats.IncCounter(stats.MetricSets, 1)
	return nil
}

// Delete removes the key from both tiers. Deleting an absent key is not an
// error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrClosed
	}

	nsKey := c.keys.Key(key)
	if c.local != nil {
		c.local.Delete(nsKey)
	}
	if err := c.delBackend(ctx, nsKey); err != nil {
		c.stats.IncCounter(stats.MetricBackendErrors, 1)
		return fmt.Errorf("deleting value: %w", err)
	}

	c.deletes.Add(1)
	c.stats.IncCounter(stats.MetricDeletes, 1)
	return nil
}

// Exists reports whether the key is present in either tier.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrClosed
	}

	nsKey := c.keys.Key(key)
	if c.local != nil {
		if _, ok := c.local.Get(nsKey); ok {
			return true, nil
		}
	}
	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	return c.backend.Exists(bctx, nsKey)
}

// GetOrSet returns the cached value for key, computing and storing it on a
// miss. Concurrent callers for the same key are serialized through a lock so
// the value is computed once; a caller that cannot get the lock in time
// re-checks the cache and then computes without it.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, compute func(ctx context.Context) (any, error)) error {
	return c.getOrSet(ctx, key, dest, ttl, compute, nil)
}

func (c *Cache) getOrSet(ctx context.Context, key string, dest any, ttl time.Duration, compute func(ctx context.Context) (any, error), tags []string) error {
	if c.closed.Load() {
		return ErrClosed
	}

	found, err := c.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()

	held, err := c.locker.Acquire(lockCtx, c.keys.LockKey("compute:"+key))
	if err != nil {
		if !errors.Is(err, lock.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("acquiring compute lock: %w", err)
		}
		// The lock holder may be stuck; serve the caller anyway.
		c.lockTimeouts.Add(1)
		c.stats.IncCounter(stats.MetricLockTimeouts, 1)
		c.logger.Warn("compute lock timed out, computing without lock", zap.String("key", key))
		return c.computeAndStore(ctx, key, dest, ttl, compute, tags)
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("lock release failed", zap.String("key", key), zap.Error(err))
		}
	}()

	// Another caller may have filled the cache while we waited.
	found, err = c.Get(ctx, key, dest)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	return c.computeAndStore(ctx, key, dest, ttl, compute, tags)
}

func (c *Cache) computeAndStore(ctx context.Context, key string, dest any, ttl time.Duration, compute func(ctx context.Context) (any, error), tags []string) error {
	value, err := compute(ctx)
	if err != nil {
		return fmt.Errorf("computing value: %w", err)
	}

	if err := c.SetWithTags(ctx, key, value, ttl, tags...); err != nil {
		// The value is good even if the store failed.
		c.logger.Warn("storing computed value failed", zap.String("key", key), zap.Error(err))
	}

	data, err := c.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding computed value: %w", err)
	}
	if err := c.codec.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decoding computed value: %w", err)
	}
	return nil
}

// InvalidateTags removes every key associated with any of the given tags.
// It returns the number of keys removed.
func (c *Cache) InvalidateTags(ctx context.Context, tags ...string) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	removed := 0
	var errs error
	for _, tag := range tags {
		members, err := c.tagMembers(ctx, tag)
		if err != nil {
			if errors.Is(err, backend.ErrNotFound) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("tag %s: %w", tag, err))
			continue
		}
		for _, nsKey := range members {
			if c.local != nil {
				c.local.Delete(nsKey)
			}
			if err := c.delBackend(ctx, nsKey); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("tag %s key %s: %w", tag, nsKey, err))
				continue
			}
			removed++
		}
		if err := c.delBackend(ctx, c.keys.TagKey(tag)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tag %s: %w", tag, err))
		}
	}

	c.deletes.Add(uint64(removed))
	c.stats.IncCounter(stats.MetricDeletes, int64(removed))
	c.logger.Debug("tags invalidated", zap.Strings("tags", tags), zap.Int("removed", removed))
	return removed, errs
}

// InvalidatePattern removes keys whose namespaced form contains the pattern
// with any "*" wildcards stripped. The local tier is always scanned; the
// backend is scanned only if it supports key scanning, so on plain backends
// remote entries survive until their TTL expires. It returns the number of
// keys removed.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	nsPattern := c.keys.Key(pattern)
	removed := 0
	if c.local != nil {
		removed += c.local.InvalidateSubstring(strings.ReplaceAll(nsPattern, "*", ""))
	}

	scanner, ok := c.backend.(backend.KeyScanner)
	if !ok {
		c.logger.Debug("backend does not support key scanning, local tier only",
			zap.String("pattern", pattern))
		return removed, nil
	}

	bctx, cancel := c.backendCtx(ctx)
	keys, err := scanner.ScanKeys(bctx, nsPattern)
	cancel()
	if err != nil {
		return removed, fmt.Errorf("scanning keys: %w", err)
	}
	var errs error
	for _, nsKey := range keys {
		if err := c.delBackend(ctx, nsKey); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("key %s: %w", nsKey, err))
			continue
		}
		removed++
	}

	c.deletes.Add(uint64(removed))
	c.stats.IncCounter(stats.MetricDeletes, int64(removed))
	return removed, errs
}

// Clear removes every entry in the cache's namespace and resets the hit/miss
// counters. On backends that support key scanning only this namespace is
// cleared; otherwise the whole backend is flushed.
func (c *Cache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	if c.local != nil {
		c.local.Clear()
	}

	scanner, ok := c.backend.(backend.KeyScanner)
	if !ok {
		bctx, cancel := c.backendCtx(ctx)
		defer cancel()
		if err := c.backend.Clear(bctx); err != nil {
			return err
		}
		c.resetCounters()
		return nil
	}

	bctx, cancel := c.backendCtx(ctx)
	keys, err := scanner.ScanKeys(bctx, c.keys.Namespace()+":*")
	cancel()
	if err != nil {
		return fmt.Errorf("scanning namespace: %w", err)
	}
	var errs error
	for _, nsKey := range keys {
		if err := c.delBackend(ctx, nsKey); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("key %s: %w", nsKey, err))
		}
	}
	if errs == nil {
		c.resetCounters()
	}
	return errs
}

// resetCounters zeroes the per-instance counters after an explicit Clear.
func (c *Cache) resetCounters() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.localHits.Store(0)
	c.sets.Store(0)
	c.deletes.Store(0)
	c.lockTimeouts.Store(0)
}

// ClearLocal drops the in-process tier without touching the backend.
func (c *Cache) ClearLocal() {
	if c.local != nil {
		c.local.Clear()
	}
}

// backendCtx bounds a single backend call when a backend timeout is
// configured. The returned cancel must always be called.
func (c *Cache) backendCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.backendTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.backendTimeout)
}

// delBackend deletes nsKey from the backend under the backend timeout.
func (c *Cache) delBackend(ctx context.Context, nsKey string) error {
	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	return c.backend.Delete(bctx, nsKey)
}

// tagMembers returns the namespaced keys registered under tag.
func (c *Cache) tagMembers(ctx context.Context, tag string) ([]string, error) {
	bctx, cancel := c.backendCtx(ctx)
	data, err := c.backend.Get(bctx, c.keys.TagKey(tag))
	cancel()
	if err != nil {
		return nil, err
	}
	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("decoding tag set: %w", err)
	}
	return members, nil
}

// addToTag appends nsKey to the tag's membership set. The read-modify-write
// is not atomic across processes; a concurrent registration can drop a
// member, which only means that key outlives a tag invalidation until its
// TTL expires.
func (c *Cache) addToTag(ctx context.Context, tag, nsKey string) error {
	members, err := c.tagMembers(ctx, tag)
	if err != nil && !errors.Is(err, backend.ErrNotFound) {
		return err
	}
	for _, m := range members {
		if m == nsKey {
			return nil
		}
	}
	members = append(members, nsKey)

	data, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("encoding tag set: %w", err)
	}
	bctx, cancel := c.backendCtx(ctx)
	defer cancel()
	return c.backend.Set(bctx, c.keys.TagKey(tag), data, tagTTL)
}

// Close releases the cache's resources, including the backend.
// After Close, the cache should not be used.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if c.local != nil {
		c.local.Clear()
	}
	return c.backend.Close()
}
