// Package refreshahead implements a strategy that recomputes entries before
// they expire, hiding recomputation latency from readers.
//
// Each key may carry a refresh callback. A Get on an entry older than
// ttl*threshold triggers the callback in a supervised background worker
// without blocking the read; a per-key pending set guarantees at most one
// refresh in flight per key.
package refreshahead

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/stats"
	"github.com/hoardkv/hoard/internal/strategy"
)

// Compile-time check that Strategy implements strategy.Strategy.
var _ strategy.Strategy = (*Strategy)(nil)

// DefaultThreshold is the fraction of a ttl after which a read triggers a
// background refresh.
const DefaultThreshold = 0.8

// refreshTimeout bounds a single background refresh.
const refreshTimeout = 30 * time.Second

// RefreshFunc recomputes the value for a key.
type RefreshFunc func(ctx context.Context) ([]byte, error)

type entryMeta struct {
	createdAt time.Time
	ttl       time.Duration
	refresh   RefreshFunc
}

// Strategy implements refresh-ahead caching.
type Strategy struct {
	backend   backend.Backend
	threshold float64
	collector stats.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	meta    map[string]entryMeta
	pending map[string]struct{}

	wg     sync.WaitGroup
	closed chan struct{}
}

// New creates a refresh-ahead strategy over the given backend. A threshold
// of zero falls back to DefaultThreshold. The collector and logger are
// optional.
func New(b backend.Backend, threshold float64, collector stats.Collector, logger *zap.Logger) *Strategy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if collector == nil {
		collector = stats.NewNoop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		backend:   b,
		threshold: threshold,
		collector: collector,
		logger:    logger,
		meta:      make(map[string]entryMeta),
		pending:   make(map[string]struct{}),
		closed:    make(chan struct{}),
	}
}

// Get retrieves a value. A hit on an entry past the refresh threshold
// schedules an asynchronous recomputation; the current value is returned
// immediately either way.
func (s *Strategy) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.maybeRefresh(key)
	return value, nil
}

// Set stores a value without a refresh callback.
func (s *Strategy) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.SetWithRefresh(ctx, key, value, ttl, nil)
}

// SetWithRefresh stores a value and registers a callback to recompute it
// when reads find the entry near expiry. A nil refresh disables
// refresh-ahead for the key.
func (s *Strategy) SetWithRefresh(ctx context.Context, key string, value []byte, ttl time.Duration, refresh RefreshFunc) error {
	if err := s.backend.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	if ttl > 0 {
		s.mu.Lock()
		s.meta[key] = entryMeta{createdAt: time.Now(), ttl: ttl, refresh: refresh}
		s.mu.Unlock()
	}
	return nil
}

// maybeRefresh schedules a background refresh for key if it is past the
// threshold and no refresh is already in flight.
func (s *Strategy) maybeRefresh(key string) {
	select {
	case <-s.closed:
		return
	default:
	}

	s.mu.Lock()
	m, ok := s.meta[key]
	if !ok || m.refresh == nil {
		s.mu.Unlock()
		return
	}
	age := time.Since(m.createdAt)
	if age <= time.Duration(float64(m.ttl)*s.threshold) {
		s.mu.Unlock()
		return
	}
	if _, inflight := s.pending[key]; inflight {
		s.mu.Unlock()
		return
	}
	s.pending[key] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.refresh(key, m)
}

func (s *Strategy) refresh(key string, m entryMeta) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	value, err := m.refresh(ctx)
	if err != nil {
		s.logger.Error("refreshing cache value", zap.String("key", key), zap.Error(err))
		return
	}

	if err := s.SetWithRefresh(ctx, key, value, m.ttl, m.refresh); err != nil {
		s.logger.Error("storing refreshed value", zap.String("key", key), zap.Error(err))
		return
	}

	s.collector.IncCounter(stats.MetricRefreshes, 1)
	s.logger.Debug("refreshed cache value", zap.String("key", key))
}

// Tracked returns the number of keys with refresh metadata.
func (s *Strategy) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.meta)
}

// Name returns "refresh-ahead".
func (s *Strategy) Name() string {
	return "refresh-ahead"
}

// Close stops scheduling new refreshes and waits for in-flight ones.
func (s *Strategy) Close() error {
	close(s.closed)
	s.wg.Wait()
	return nil
}
