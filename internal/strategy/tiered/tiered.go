// Package tiered implements a multi-level cache strategy over an ordered
// list of backends (e.g. in-memory L1, redis L2, object-storage L3).
//
// Gets probe tiers in order and promote lower-tier hits into every faster
// tier. Sets write to each tier whose size bounds admit the value, with a
// per-tier TTL multiplier so slower tiers keep entries longer.
package tiered

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/stats"
	"github.com/hoardkv/hoard/internal/strategy"
)

// Compile-time check that Strategy implements strategy.Strategy.
var _ strategy.Strategy = (*Strategy)(nil)

// promoteTimeout bounds the background writes that copy a lower-tier hit
// into faster tiers.
const promoteTimeout = 10 * time.Second

// TierConfig bounds what a tier stores and how long it keeps it.
type TierConfig struct {
	// MinValueSize and MaxValueSize bound admitted value sizes in bytes.
	// Zero means unbounded.
	MinValueSize int
	MaxValueSize int

	// TTLMultiplier scales the caller's ttl for this tier. Zero defaults
	// to tier position + 1, so slower tiers hold entries longer.
	TTLMultiplier float64
}

// TierStats holds per-tier hit/miss counters.
type TierStats struct {
	Tier   int
	Hits   int64
	Misses int64
}

// HitRate returns the tier's hit rate in [0, 1].
func (s TierStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type tier struct {
	backend backend.Backend
	config  TierConfig
	hits    atomic.Int64
	misses  atomic.Int64
}

func (t *tier) admits(size int) bool {
	if t.config.MinValueSize > 0 && size < t.config.MinValueSize {
		return false
	}
	if t.config.MaxValueSize > 0 && size > t.config.MaxValueSize {
		return false
	}
	return true
}

// Strategy probes an ordered list of tiers.
type Strategy struct {
	tiers     []*tier
	collector stats.Collector
	logger    *zap.Logger

	wg     sync.WaitGroup
	closed chan struct{}
}

// Tier pairs a backend with its config for construction.
type Tier struct {
	Backend backend.Backend
	Config  TierConfig
}

// New creates a tiered strategy. Tier order is probe order: index 0 is the
// fastest tier. The collector and logger are optional.
func New(tiers []Tier, collector stats.Collector, logger *zap.Logger) *Strategy {
	if collector == nil {
		collector = stats.NewNoop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Strategy{
		collector: collector,
		logger:    logger,
		closed:    make(chan struct{}),
	}
	for _, t := range tiers {
		s.tiers = append(s.tiers, &tier{backend: t.Backend, config: t.Config})
	}
	return s
}

// Get probes tiers in order. A hit at tier i>0 is promoted into all faster
// tiers in the background; the value is returned without waiting for the
// promotion writes.
func (s *Strategy) Get(ctx context.Context, key string) ([]byte, error) {
	for i, t := range s.tiers {
		value, err := t.backend.Get(ctx, key)
		if err == nil {
			t.hits.Add(1)
			if i > 0 {
				s.promote(key, value, i)
			}
			return value, nil
		}
		t.misses.Add(1)
		if !errors.Is(err, backend.ErrNotFound) {
			s.logger.Warn("tier read failed", zap.Int("tier", i), zap.String("key", key), zap.Error(err))
		}
	}
	return nil, backend.ErrNotFound
}

// Set writes the value to every tier whose size bounds admit it.
func (s *Strategy) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var firstErr error
	stored := false
	for i, t := range s.tiers {
		if !t.admits(len(value)) {
			continue
		}
		if err := t.backend.Set(ctx, key, value, s.tierTTL(i, ttl)); err != nil {
			s.logger.Warn("tier write failed", zap.Int("tier", i), zap.String("key", key), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		stored = true
	}
	if !stored && firstErr != nil {
		return firstErr
	}
	return nil
}

// Delete removes key from every tier.
func (s *Strategy) Delete(ctx context.Context, key string) error {
	var firstErr error
	for i, t := range s.tiers {
		if err := t.backend.Delete(ctx, key); err != nil && firstErr == nil {
			s.logger.Warn("tier delete failed", zap.Int("tier", i), zap.String("key", key), zap.Error(err))
			firstErr = err
		}
	}
	return firstErr
}

// promote copies a lower-tier hit into all faster tiers with their own TTLs.
// The writes run in a supervised background task drained by Close.
func (s *Strategy) promote(key string, value []byte, hitTier int) {
	select {
	case <-s.closed:
		return
	default:
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), promoteTimeout)
		defer cancel()

		for i := 0; i < hitTier; i++ {
			t := s.tiers[i]
			if !t.admits(len(value)) {
				continue
			}
			if err := t.backend.Set(ctx, key, value, s.tierTTL(i, 5*time.Minute)); err != nil {
				s.logger.Warn("tier promotion failed", zap.Int("tier", i), zap.String("key", key), zap.Error(err))
				continue
			}
			s.collector.IncCounter(stats.MetricPromotions, 1)
		}
	}()
}

// tierTTL scales ttl by the tier's multiplier. Unset multipliers default to
// the tier's position + 1.
func (s *Strategy) tierTTL(index int, ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	multiplier := s.tiers[index].config.TTLMultiplier
	if multiplier <= 0 {
		multiplier = float64(index + 1)
	}
	return time.Duration(float64(ttl) * multiplier)
}

// TierStats returns per-tier hit/miss counters in probe order.
func (s *Strategy) TierStats() []TierStats {
	out := make([]TierStats, len(s.tiers))
	for i, t := range s.tiers {
		out[i] = TierStats{Tier: i, Hits: t.hits.Load(), Misses: t.misses.Load()}
	}
	return out
}

// Name returns "tiered".
func (s *Strategy) Name() string {
	return "tiered"
}

// Close waits for in-flight promotions to drain.
func (s *Strategy) Close() error {
	close(s.closed)
	s.wg.Wait()
	return nil
}
