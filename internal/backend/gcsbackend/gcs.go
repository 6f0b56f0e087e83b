// Package gcsbackend implements a cold-storage backend on Google Cloud
// Storage.
//
// Each cache key maps to one object. GCS has no per-object TTL (bucket
// lifecycle rules aside), so the ttl argument is ignored; this backend is
// meant as the lowest tier of a tiered cache.
package gcsbackend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/hoardkv/hoard/internal/backend"
)

// Compile-time check that Backend implements backend.Backend.
var _ backend.Backend = (*Backend)(nil)

// Backend stores cache values as GCS objects.
type Backend struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// New creates a new GCS backend. The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Backend, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	b := &Backend{
		client: client,
		bucket: client.Bucket(bucketName),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = strings.TrimSuffix(prefix, "/")
		if b.prefix != "" {
			b.prefix += "/"
		}
	}
}

// Get reads the object for key.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := b.bucket.Object(b.objectKey(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return data, nil
}

// Set writes the object for key. The ttl is ignored.
func (b *Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	writer := b.bucket.Object(b.objectKey(key)).NewWriter(ctx)
	if _, err := writer.Write(value); err != nil {
		writer.Close()
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

// Delete removes the object for key.
func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.bucket.Object(b.objectKey(key)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return nil
}

// Exists reports whether the object for key is present.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.bucket.Object(b.objectKey(key)).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return true, nil
}

// Clear deletes every object under the prefix.
func (b *Backend) Clear(ctx context.Context) error {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: b.prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
		}
		if err := b.bucket.Object(attrs.Name).Delete(ctx); err != nil {
			return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
		}
	}
}

// GetMany retrieves multiple keys, one request per key.
func (b *Backend) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		data, err := b.Get(ctx, key)
		if errors.Is(err, backend.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[key] = data
	}
	return result, nil
}

// SetMany stores multiple entries.
func (b *Backend) SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	for key, value := range entries {
		if err := b.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}

// objectKey returns the full object key for a cache key.
func (b *Backend) objectKey(key string) string {
	return b.prefix + key
}
