// Package membackend provides an in-memory backend implementation.
// It is used as the fast tier in tiered setups and for testing.
package membackend

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hoardkv/hoard/internal/backend"
)

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Compile-time check that Backend implements backend.KeyScanner.
var _ backend.KeyScanner = (*Backend)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Backend is a thread-safe in-memory key-value backend with per-entry TTL.
// Expired entries are dropped lazily on access.
type Backend struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New creates a new in-memory backend.
func New() *Backend {
	return &Backend{
		entries: make(map[string]entry),
	}
}

// Get retrieves the value for key.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return nil, backend.ErrNotFound
	}
	if e.expired(time.Now()) {
		b.mu.Lock()
		delete(b.entries, key)
		b.mu.Unlock()
		return nil, backend.ErrNotFound
	}
	return e.value, nil
}

// Set stores value under key.
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	copied := make([]byte, len(value))
	copy(copied, value)

	e := entry{value: copied}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	b.mu.Lock()
	b.entries[key] = e
	b.mu.Unlock()
	return nil
}

// Delete removes key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	delete(b.entries, key)
	b.mu.Unlock()
	return nil
}

// Exists reports whether key is present and unexpired.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.Get(ctx, key)
	if err == backend.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear removes all keys.
func (b *Backend) Clear(ctx context.Context) error {
	b.mu.Lock()
	b.entries = make(map[string]entry)
	b.mu.Unlock()
	return nil
}

// GetMany retrieves multiple keys.
func (b *Backend) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := b.Get(ctx, key)
		if err == backend.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, nil
}

// SetMany stores multiple entries with a shared ttl.
func (b *Backend) SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	for key, value := range entries {
		if err := b.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

// ScanKeys returns all unexpired keys containing pattern as a substring.
// The "*" wildcard is stripped so redis-style globs like "user:*" behave
// as prefix matches.
func (b *Backend) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	needle := strings.ReplaceAll(pattern, "*", "")
	now := time.Now()

	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []string
	for key, e := range b.entries {
		if e.expired(now) {
			continue
		}
		if strings.Contains(key, needle) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Len returns the number of stored entries, including not-yet-swept
// expired ones.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Close is a no-op for the memory backend.
func (b *Backend) Close() error {
	return nil
}
