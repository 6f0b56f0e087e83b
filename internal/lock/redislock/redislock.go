// Package redislock provides a redis-backed Locker for cluster-wide
// serialization of per-key computations.
//
// Locks are plain SET NX PX keys holding a random token; release is a
// compare-and-delete so an expired lock taken over by another holder is
// never deleted by the original owner.
package redislock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hoardkv/hoard/internal/lock"
)

// Compile-time check that Locker implements lock.Locker.
var _ lock.Locker = (*Locker)(nil)

// releaseScript deletes the lock key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const defaultRetryInterval = 50 * time.Millisecond

// Locker implements distributed locks on a redis client.
type Locker struct {
	client        redis.UniversalClient
	ttl           time.Duration
	retryInterval time.Duration
}

// New creates a redis locker. ttl bounds how long a crashed holder can
// block other acquirers; it should exceed the longest expected computation.
func New(client redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{
		client:        client,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
	}
}

// Acquire blocks until the named lock is held or ctx is done.
func (l *Locker) Acquire(ctx context.Context, name string) (lock.Lock, error) {
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, name, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &heldLock{client: l.client, name: name, token: token}, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, lock.ErrTimeout
		}
	}
}

type heldLock struct {
	client redis.UniversalClient
	name   string
	token  string
}

// Release deletes the lock key if we still own it.
func (h *heldLock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, h.client, []string{h.name}, h.token).Err()
}
