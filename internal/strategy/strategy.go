// Package strategy defines the cache eviction/refresh strategy interface.
//
// A strategy wraps a backend and adds admission, eviction, or refresh logic
// on top of it. Strategies present the same Get/Set surface as a plain
// backend, so they compose with the facade and with each other.
package strategy

import (
	"context"
	"time"
)

// Strategy defines the interface for cache strategies.
type Strategy interface {
	// Get retrieves a value, updating strategy bookkeeping.
	// Returns backend.ErrNotFound for misses.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value, evicting per the strategy's policy if needed.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Name returns a human-readable name for this strategy.
	Name() string

	// Close flushes any background workers owned by the strategy.
	Close() error
}
