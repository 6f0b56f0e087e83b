// Package localtier provides the in-process L1 tier of the cache.
//
// Entries carry their own expiry timestamps, bounded by the local TTL, so a
// remote invalidation can leave the tier stale for at most that long.
// Capacity bounding is delegated to hashicorp's LRU.
package localtier

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Tier is a capacity-bounded local cache with per-entry expiry.
// It is safe for concurrent use.
type Tier struct {
	mu        sync.Mutex
	cache     *lru.Cache[string, entry]
	evictions int64
}

// New creates a local tier holding at most capacity entries.
func New(capacity int) (*Tier, error) {
	c, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Tier{cache: c}, nil
}

// Get returns the cached value for key, or false if absent or expired.
// Expired entries are removed on access.
func (t *Tier) Get(key string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.cache.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		t.cache.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for the given ttl.
func (t *Tier) Set(key string, value []byte, ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if evicted := t.cache.Add(key, entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}); evicted {
		t.evictions++
	}
}

// Evictions returns the number of entries displaced by capacity pressure.
// Explicit deletes and expiry sweeps are not counted.
func (t *Tier) Evictions() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.evictions
}

// Delete removes key.
func (t *Tier) Delete(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Remove(key)
}

// Clear removes all entries.
func (t *Tier) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Purge()
}

// Len returns the number of entries, including not-yet-swept expired ones.
func (t *Tier) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}

// InvalidateSubstring removes every key containing pattern and returns the
// number removed.
func (t *Tier) InvalidateSubstring(pattern string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var victims []string
	for _, key := range t.cache.Keys() {
		if strings.Contains(key, pattern) {
			victims = append(victims, key)
		}
	}
	for _, key := range victims {
		t.cache.Remove(key)
	}
	return len(victims)
}
