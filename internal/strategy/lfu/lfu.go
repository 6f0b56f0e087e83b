// Package lfu implements a least-frequently-used cache strategy over a
// backend.
//
// Keys live in frequency buckets (frequency -> insertion-ordered list) with
// a minFrequency pointer, giving O(1) amortized updates without a priority
// queue. Eviction removes the oldest key in the minimum-frequency bucket.
package lfu

import (
	"container/list"
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

// Strategy implements LFU eviction.
type Strategy struct {
	backend   backend.Backend
	maxSize   int
	collector stats.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	buckets map[int]*list.List // frequency -> keys, front is oldest
	elems   map[string]*list.Element
	freqs   map[string]int
	minFreq int
}

// New creates an LFU strategy over the given backend, holding at most
// maxSize keys. The collector and logger are optional.
func New(b backend.Backend, maxSize int, collector stats.Collector, logger *zap.Logger) *Strategy {
	if collector == nil {
		collector = stats.NewNoop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		backend:   b,
		maxSize:   maxSize,
		collector: collector,
		logger:    logger,
		buckets:   make(map[int]*list.List),
		elems:     make(map[string]*list.Element),
		freqs:     make(map[string]int),
	}
}

// Get retrieves a value, bumping the key's frequency on a hit.
func (s *Strategy) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.touch(key)
	s.mu.Unlock()
	return value, nil
}

// Set stores a value, evicting the least-frequently-used key when full.
// New keys enter at frequency 1.
func (s *Strategy) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	var victim string
	_, known := s.freqs[key]
	if !known && len(s.elems) >= s.maxSize {
		victim = s.evictLocked()
	}
	s.mu.Unlock()

	if victim != "" {
		if err := s.backend.Delete(ctx, victim); err != nil {
			s.logger.Warn("evicting key from backend", zap.String("key", victim), zap.Error(err))
		}
		s.collector.IncCounter(stats.MetricEvictions, 1)
	}

	if err := s.backend.Set(ctx, key, value, ttl); err != nil {
		return err
	}

	s.mu.Lock()
	if _, known := s.freqs[key]; !known {
		s.insertLocked(key)
	}
	s.mu.Unlock()
	return nil
}

// Frequency returns the current access frequency of key, or 0 if untracked.
func (s *Strategy) Frequency(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freqs[key]
}

// Len returns the number of tracked keys.
func (s *Strategy) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.elems)
}

// Name returns "lfu".
func (s *Strategy) Name() string {
	return "lfu"
}

// Close is a no-op; the LFU strategy has no background workers.
func (s *Strategy) Close() error {
	return nil
}

// insertLocked admits a new key at frequency 1.
func (s *Strategy) insertLocked(key string) {
	s.freqs[key] = 1
	s.elems[key] = s.bucket(1).PushBack(key)
	s.minFreq = 1
}

// touch moves key from bucket f to bucket f+1.
func (s *Strategy) touch(key string) {
	freq, ok := s.freqs[key]
	if !ok {
		return
	}

	bucket := s.buckets[freq]
	bucket.Remove(s.elems[key])
	if bucket.Len() == 0 {
		delete(s.buckets, freq)
		if freq == s.minFreq {
			s.minFreq++
		}
	}

	freq++
	s.freqs[key] = freq
	s.elems[key] = s.bucket(freq).PushBack(key)
}

// evictLocked removes the oldest key in the minimum-frequency bucket from
// bookkeeping and returns it. Returns "" when nothing is tracked.
func (s *Strategy) evictLocked() string {
	bucket, ok := s.buckets[s.minFreq]
	if !ok || bucket.Len() == 0 {
		return ""
	}

	front := bucket.Front()
	key := front.Value.(string)
	bucket.Remove(front)
	if bucket.Len() == 0 {
		delete(s.buckets, s.minFreq)
	}
	delete(s.elems, key)
	delete(s.freqs, key)

	s.logger.Debug("lfu eviction", zap.String("key", key), zap.Int("frequency", s.minFreq))
	return key
}

func (s *Strategy) bucket(freq int) *list.List {
	b, ok := s.buckets[freq]
	if !ok {
		b = list.New()
		s.buckets[freq] = b
	}
	return b
}
