package hoard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WarmEntry is one key to preload during WarmUp.
type WarmEntry struct {
	Key     string
	TTL     time.Duration
	Compute func(ctx context.Context) (any, error)
}

// defaultWarmParallelism bounds parallel compute calls during WarmUp when the
// caller passes a parallelism of 0 or less.
const defaultWarmParallelism = 8

// WarmUp preloads the given entries with at most parallelism concurrent
// computes, skipping keys that are already cached. A parallelism of 0 or
// less uses the default of 8. Every entry is attempted even when some fail,
// and the failures are returned together. It returns the number of entries
// actually loaded.
func (c *Cache) WarmUp(ctx context.Context, entries []WarmEntry, parallelism int) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	if parallelism <= 0 {
		parallelism = defaultWarmParallelism
	}

	var g errgroup.Group
	g.SetLimit(parallelism)

	var mu sync.Mutex
	var errs error
	loaded := 0
	fail := func(err error) {
		mu.Lock()
		errs = multierr.Append(errs, err)
		mu.Unlock()
	}

	for _, entry := range entries {
		g.Go(func() error {
			exists, err := c.Exists(ctx, entry.Key)
			if err != nil {
				fail(fmt.Errorf("warming %s: %w", entry.Key, err))
				return nil
			}
			if exists {
				return nil
			}

			value, err := entry.Compute(ctx)
			if err != nil {
				fail(fmt.Errorf("warming %s: %w", entry.Key, err))
				return nil
			}
			if err := c.Set(ctx, entry.Key, value, entry.TTL); err != nil {
				fail(fmt.Errorf("warming %s: %w", entry.Key, err))
				return nil
			}

			mu.Lock()
			loaded++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Info("cache warmed",
		zap.Int("requested", len(entries)),
		zap.Int("loaded", loaded))
	return loaded, errs
}
