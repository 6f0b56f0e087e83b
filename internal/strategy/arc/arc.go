// Package arc implements the Adaptive Replacement Cache strategy over a
// backend.
//
// ARC keeps four ordered key lists: T1 (seen once recently), T2 (seen at
// least twice), and ghost lists B1/B2 holding keys recently evicted from
// T1/T2 without their values. A hit in a ghost list shifts the adaptive
// target p, so the split between recency-favored and frequency-favored
// capacity self-tunes to the observed workload.
//
// Invariants: a key is in at most one of the four lists; |T1|+|T2| never
// exceeds maxSize; the four lists together never exceed 2*maxSize.
package arc

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/stats"
	"github.com/hoardkv/hoard/internal/strategy"
)

// Compile-time check that Strategy implements strategy.Strategy.
var _ strategy.Strategy = (*Strategy)(nil)

// Strategy implements the ARC algorithm.
type Strategy struct {
	backend   backend.Backend
	maxSize   int
	collector stats.Collector
	logger    *zap.Logger

	mu sync.Mutex
	t1 *keyList // recent entries, seen once
	t2 *keyList // frequent entries, seen at least twice
	b1 *keyList // ghosts evicted from T1
	b2 *keyList // ghosts evicted from T2
	p  float64  // target size for T1, in [0, maxSize]
}

// New creates an ARC strategy over the given backend with the given
// capacity. The collector and logger are optional.
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
		t1:        newKeyList(),
		t2:        newKeyList(),
		b1:        newKeyList(),
		b2:        newKeyList(),
	}
}

// Get retrieves a value and updates the four-list bookkeeping.
//
// A hit in T1 promotes the key to T2; a hit in T2 refreshes its position.
// A hit in a ghost list adapts p toward the list that is seeing re-access
// and moves the key to T2 even though its value is gone from the backend,
// so the next Set lands it directly in the frequent list.
func (s *Strategy) Get(ctx context.Context, key string) ([]byte, error) {
	value, gerr := s.backend.Get(ctx, key)
	found := gerr == nil

	var victims []string
	s.mu.Lock()
	switch {
	case s.t1.contains(key):
		s.t1.remove(key)
		if found {
			s.t2.pushMRU(key)
		}
	case s.t2.contains(key):
		if found {
			s.t2.moveToMRU(key)
		} else {
			// The backend lost the entry (TTL expiry); repair bookkeeping.
			s.t2.remove(key)
		}
	case s.b1.contains(key):
		delta := math.Max(1, float64(s.b2.len())/float64(s.b1.len()))
		s.p = math.Min(float64(s.maxSize), s.p+delta)
		victims = s.replaceLocked()
		s.b1.remove(key)
		s.t2.pushMRU(key)
	case s.b2.contains(key):
		delta := math.Max(1, float64(s.b1.len())/float64(s.b2.len()))
		s.p = math.Max(0, s.p-delta)
		victims = s.replaceLocked()
		s.b2.remove(key)
		s.t2.pushMRU(key)
	}
	s.mu.Unlock()

	s.deleteVictims(ctx, victims)
	return value, gerr
}

// Set stores a value. Known keys update in place; new keys enter T1,
// evicting per the adaptive policy when the cache is full.
func (s *Strategy) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	if s.t1.contains(key) || s.t2.contains(key) {
		s.mu.Unlock()
		return s.backend.Set(ctx, key, value, ttl)
	}

	// Ghost membership ends here so the key lives in exactly one list.
	s.b1.remove(key)
	s.b2.remove(key)

	var victims []string
	if s.t1.len()+s.t2.len() >= s.maxSize {
		victims = s.replaceLocked()
	}
	s.t1.pushMRU(key)
	s.mu.Unlock()

	s.deleteVictims(ctx, victims)
	return s.backend.Set(ctx, key, value, ttl)
}

// replaceLocked makes room for one incoming key and returns the keys whose
// values must be deleted from the backend.
func (s *Strategy) replaceLocked() []string {
	var victims []string

	if s.t1.len()+s.b1.len() >= s.maxSize {
		if s.b1.len() > 0 {
			s.b1.popLRU()
		} else if s.t1.len() > 0 {
			// B1 empty means T1 alone fills the cache; drop its LRU
			// outright, without ghosting.
			victims = append(victims, s.t1.popLRU())
			return victims
		}
	} else if s.t1.len()+s.t2.len()+s.b1.len()+s.b2.len() >= 2*s.maxSize {
		s.b2.popLRU()
	}

	if s.t1.len()+s.t2.len() < s.maxSize {
		return victims
	}

	if s.t1.len() > 0 && float64(s.t1.len()) > math.Max(s.p, 1) {
		key := s.t1.popLRU()
		s.b1.pushMRU(key)
		victims = append(victims, key)
	} else if s.t2.len() > 0 {
		key := s.t2.popLRU()
		s.b2.pushMRU(key)
		victims = append(victims, key)
	}
	return victims
}

func (s *Strategy) deleteVictims(ctx context.Context, victims []string) {
	for _, key := range victims {
		if err := s.backend.Delete(ctx, key); err != nil {
			s.logger.Warn("evicting key from backend", zap.String("key", key), zap.Error(err))
		}
		s.collector.IncCounter(stats.MetricEvictions, 1)
		s.logger.Debug("arc eviction", zap.String("key", key), zap.Float64("p", s.P()))
	}
}

// Len returns |T1|+|T2|.
func (s *Strategy) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t1.len() + s.t2.len()
}

// P returns the current adaptive target size for T1.
func (s *Strategy) P() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}

// ListLens returns |T1|, |T2|, |B1|, |B2|.
func (s *Strategy) ListLens() (t1, t2, b1, b2 int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t1.len(), s.t2.len(), s.b1.len(), s.b2.len()
}

// Name returns "arc".
func (s *Strategy) Name() string {
	return "arc"
}

// Close is a no-op; the ARC strategy has no background workers.
func (s *Strategy) Close() error {
	return nil
}
