package memlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hoardkv/hoard/internal/lock"
)

func TestLocker_MutualExclusion(t *testing.T) {
	locker := New()
	ctx := context.Background()

	var inCritical atomic.Int32
	var maxSeen atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			lk, err := locker.Acquire(ctx, "shared")
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			defer lk.Release(ctx)

			n := inCritical.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inCritical.Add(-1)
		}()
	}
	wg.Wait()

	if maxSeen.Load() != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen.Load())
	}
}

func TestLocker_TimeoutWhileHeld(t *testing.T) {
	locker := New()
	ctx := context.Background()

	lk, err := locker.Acquire(ctx, "busy")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer lk.Release(ctx)

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	if _, err := locker.Acquire(timeoutCtx, "busy"); err != lock.ErrTimeout {
		t.Errorf("Acquire() error = %v, want ErrTimeout", err)
	}
}

func TestLocker_IndependentNames(t *testing.T) {
	locker := New()
	ctx := context.Background()

	a, err := locker.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire(a) error = %v", err)
	}
	defer a.Release(ctx)

	// A different name must not block.
	timeoutCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	b, err := locker.Acquire(timeoutCtx, "b")
	if err != nil {
		t.Fatalf("Acquire(b) error = %v", err)
	}
	b.Release(ctx)
}

func TestLock_DoubleRelease(t *testing.T) {
	locker := New()
	ctx := context.Background()

	lk, err := locker.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := lk.Release(ctx); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if err := lk.Release(ctx); err != nil {
		t.Errorf("second Release() error = %v", err)
	}

	// Lock must be available again.
	lk2, err := locker.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	lk2.Release(ctx)
}
