// Package backend defines the storage backend interface shared by every
// cache strategy, the facade, and the cluster.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the backend.
var ErrNotFound = errors.New("backend: key not found")

// ErrUnavailable wraps network or connection failures. Read paths treat it
// as a miss; write paths propagate it so callers can retry or alert.
var ErrUnavailable = errors.New("backend: unavailable")

// Backend defines the interface for cache storage backends.
// Values are opaque byte slices; encoding happens above the backend.
// A ttl of zero means no expiry.
type Backend interface {
	// Get retrieves the value for key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes all keys.
	Clear(ctx context.Context) error

	// GetMany retrieves multiple keys in one round trip. Absent keys are
	// simply missing from the result; semantics match repeated Get calls.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMany stores multiple entries with a shared ttl.
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error

	// Close releases any resources held by the backend.
	Close() error
}

// KeyScanner is an optional capability for backends that can enumerate keys
// matching a glob-style pattern. Pattern invalidation uses it to extend
// beyond the process-local tier when available.
type KeyScanner interface {
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}
