package hoard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Memoize wraps fn so its results are cached under keys derived from name
// and the argument. The argument must be JSON-encodable; arguments that
// encode identically share a cache entry. Concurrent calls with the same
// argument are collapsed through GetOrSet.
func Memoize[A any, V any](c *Cache, name string, ttl time.Duration, fn func(ctx context.Context, arg A) (V, error)) func(ctx context.Context, arg A) (V, error) {
	return MemoizeWithTags(c, name, ttl, nil, fn)
}

// MemoizeWithTags is Memoize with tags attached to every computed entry, so
// a whole function's cached results can be dropped with InvalidateTags.
func MemoizeWithTags[A any, V any](c *Cache, name string, ttl time.Duration, tags []string, fn func(ctx context.Context, arg A) (V, error)) func(ctx context.Context, arg A) (V, error) {
	return func(ctx context.Context, arg A) (V, error) {
		var result V

		key, err := memoKey(name, arg)
		if err != nil {
			return result, err
		}

		err = c.getOrSet(ctx, key, &result, ttl, func(ctx context.Context) (any, error) {
			return fn(ctx, arg)
		}, tags)
		return result, err
	}
}

// memoKey derives a stable cache key from the function name and argument.
func memoKey(name string, arg any) (string, error) {
	data, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("encoding memoized argument: %w", err)
	}
	sum := sha256.Sum256(data)
	return "memo:" + name + ":" + hex.EncodeToString(sum[:]), nil
}
