// Package lru implements a least-recently-used cache strategy over a
// backend. Recency bookkeeping rides on hashicorp's LRU; the eviction
// callback removes the victim from the backend.
package lru

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/stats"
	"github.com/hoardkv/hoard/internal/strategy"
)

// Compile-time check that Strategy implements strategy.Strategy.
var _ strategy.Strategy = (*Strategy)(nil)

// evictTimeout bounds the backend delete issued from the eviction callback,
// which has no caller context.
const evictTimeout = 5 * time.Second

// Strategy implements LRU eviction.
type Strategy struct {
	backend   backend.Backend
	keys      *lru.Cache[string, time.Time]
	collector stats.Collector
	logger    *zap.Logger
}

// New creates an LRU strategy over the given backend, holding at most
// maxSize keys. The collector and logger are optional.
func New(b backend.Backend, maxSize int, collector stats.Collector, logger *zap.Logger) (*Strategy, error) {
	if collector == nil {
		collector = stats.NewNoop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Strategy{
		backend:   b,
		collector: collector,
		logger:    logger,
	}

	keys, err := lru.NewWithEvict(maxSize, s.onEvict)
	if err != nil {
		return nil, err
	}
	s.keys = keys
	return s, nil
}

// Get retrieves a value, marking the key most recently used on a hit.
func (s *Strategy) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	// Refresh recency; re-admit keys the backend knows but we lost track of.
	if _, tracked := s.keys.Get(key); !tracked {
		s.keys.Add(key, time.Now())
	}
	return value, nil
}

// Set stores a value, evicting the least-recently-used key when full.
func (s *Strategy) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.backend.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	s.keys.Add(key, time.Now())
	return nil
}

// Len returns the number of tracked keys.
func (s *Strategy) Len() int {
	return s.keys.Len()
}

// Name returns "lru".
func (s *Strategy) Name() string {
	return "lru"
}

// Close is a no-op; the LRU strategy has no background workers.
func (s *Strategy) Close() error {
	return nil
}

func (s *Strategy) onEvict(key string, _ time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), evictTimeout)
	defer cancel()

	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("evicting key from backend", zap.String("key", key), zap.Error(err))
	}
	s.collector.IncCounter(stats.MetricEvictions, 1)
	s.logger.Debug("lru eviction", zap.String("key", key))
}
