// Package redisbackend implements the backend interface on a redis server.
package redisbackend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hoardkv/hoard/internal/backend"
)

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Compile-time check that Backend implements backend.KeyScanner.
var _ backend.KeyScanner = (*Backend)(nil)

// Config holds connection settings for the redis backend.
type Config struct {
	Addr     string
	Password string
	DB       int

	// DialTimeout, ReadTimeout and WriteTimeout bound every network call.
	// Zero values fall back to go-redis defaults.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize int
}

// Backend stores values in redis.
type Backend struct {
	client redis.UniversalClient
}

// New creates a redis backend from config.
func New(cfg Config) *Backend {
	return FromClient(redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}))
}

// FromClient wraps an existing redis client. The caller keeps ownership of
// cluster/sentinel topology choices; Close still closes the client.
func FromClient(client redis.UniversalClient) *Backend {
	return &Backend{client: client}
}

// Client exposes the underlying redis client so other components, such as
// distributed locks, can share the connection pool.
func (b *Backend) Client() redis.UniversalClient {
	return b.client
}

// Ping verifies connectivity.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

// Get retrieves the value for key.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return data, nil
}

// Set stores value under key. A zero ttl stores without expiry.
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := b.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

// Delete removes key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

// Exists reports whether key is present.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := b.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return n > 0, nil
}

// Clear flushes the current database.
func (b *Backend) Clear(ctx context.Context) error {
	if err := b.client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

// GetMany retrieves multiple keys with a single MGET.
func (b *Backend) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}

	result := make(map[string][]byte, len(keys))
	for i, v := range values {
		if v == nil {
			continue
		}
		// go-redis returns MGET values as strings.
		if s, ok := v.(string); ok {
			result[keys[i]] = []byte(s)
		}
	}
	return result, nil
}

// SetMany stores multiple entries in one pipelined round trip.
func (b *Backend) SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	pipe := b.client.Pipeline()
	for key, value := range entries {
		pipe.Set(ctx, key, value, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

// ScanKeys returns all keys matching a redis glob pattern, using cursored
// SCAN so large keyspaces do not block the server.
func (b *Backend) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := b.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Close closes the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}
