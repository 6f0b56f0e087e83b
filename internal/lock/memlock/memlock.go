// Package memlock provides an in-process Locker for single-node setups
// and tests.
package memlock

import (
	"context"
	"sync"

	"github.com/hoardkv/hoard/internal/lock"
)

// Compile-time check that Locker implements lock.Locker.
var _ lock.Locker = (*Locker)(nil)

// Locker implements named locks with one buffered channel per name.
type Locker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// New creates a new in-process locker.
func New() *Locker {
	return &Locker{
		locks: make(map[string]chan struct{}),
	}
}

// Acquire blocks until the named lock is held or ctx is done.
func (l *Locker) Acquire(ctx context.Context, name string) (lock.Lock, error) {
	ch := l.channel(name)

	select {
	case ch <- struct{}{}:
		return &heldLock{ch: ch}, nil
	case <-ctx.Done():
		return nil, lock.ErrTimeout
	}
}

func (l *Locker) channel(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.locks[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[name] = ch
	}
	return ch
}

type heldLock struct {
	ch       chan struct{}
	released sync.Once
}

// Release releases the lock. Safe to call more than once.
func (h *heldLock) Release(ctx context.Context) error {
	h.released.Do(func() {
		<-h.ch
	})
	return nil
}
