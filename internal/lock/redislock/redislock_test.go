package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hoardkv/hoard/internal/lock"
)

func setup(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	locker := New(client, 30*time.Second)
	locker.retryInterval = 5 * time.Millisecond
	return locker, mr
}

func TestLocker_AcquireRelease(t *testing.T) {
	locker, mr := setup(t)
	ctx := context.Background()

	lk, err := locker.Acquire(ctx, "ns:lock:compute:k")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !mr.Exists("ns:lock:compute:k") {
		t.Error("lock key should exist while held")
	}

	if err := lk.Release(ctx); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if mr.Exists("ns:lock:compute:k") {
		t.Error("lock key should be deleted after release")
	}
}

func TestLocker_TimeoutWhileHeld(t *testing.T) {
	locker, _ := setup(t)
	ctx := context.Background()

	lk, err := locker.Acquire(ctx, "busy")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lk.Release(ctx)

	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	if _, err := locker.Acquire(timeoutCtx, "busy"); err != lock.ErrTimeout {
		t.Errorf("Acquire() error = %v, want ErrTimeout", err)
	}
}

func TestLocker_ReacquireAfterRelease(t *testing.T) {
	locker, _ := setup(t)
	ctx := context.Background()

	lk, err := locker.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lk.Release(ctx); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	lk2, err := locker.Acquire(timeoutCtx, "k")
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	lk2.Release(ctx)
}

func TestLock_ReleaseOnlyOwnToken(t *testing.T) {
	locker, mr := setup(t)
	ctx := context.Background()

	lk, err := locker.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Simulate expiry plus takeover by another holder.
	mr.Set("k", "someone-else")

	if err := lk.Release(ctx); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	got, _ := mr.Get("k")
	if got != "someone-else" {
		t.Errorf("lock key = %q, a stale release must not delete another holder's lock", got)
	}
}
