// Package lock defines the named lock interface used to serialize
// per-key computations across callers, and across processes when the
// implementation is backed by a shared store.
package lock

import (
	"context"
	"errors"
)

// ErrTimeout is returned when a lock could not be acquired before the
// caller's deadline.
var ErrTimeout = errors.New("lock: acquisition timed out")

// Locker hands out named locks.
type Locker interface {
	// Acquire blocks until the named lock is held or ctx is done.
	// The returned Lock must be released on every exit path.
	Acquire(ctx context.Context, name string) (Lock, error)
}

// Lock is a held lock.
type Lock interface {
	// Release releases the lock. Releasing an already-released or expired
	// lock is not an error.
	Release(ctx context.Context) error
}
