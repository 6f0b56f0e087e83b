// Package memhoardfx provides an fx module for an in-memory cache.
// Useful for testing.
package memhoardfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hoardkv/hoard"
	"github.com/hoardkv/hoard/internal/backend/membackend"
	"github.com/hoardkv/hoard/internal/stats"
	"github.com/hoardkv/hoard/internal/stats/logger"
)

// Module provides an in-memory cache for testing.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("memhoard",
	fx.Provide(
		newStatsCollector,
		newBackend,
		newCache,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("hoard.stats"))
}

func newBackend() *membackend.Backend {
	return membackend.New()
}

// Params holds dependencies for creating the cache.
type Params struct {
	fx.In

	Logger    *zap.Logger
	Collector stats.Collector
	Backend   *membackend.Backend
	Lifecycle fx.Lifecycle
}

// Result holds the provided cache and backend.
type Result struct {
	fx.Out

	Cache   *hoard.Cache
	Backend *membackend.Backend // Exposed for test setup
}

func newCache(p Params) (Result, error) {
	cache, err := hoard.New(
		hoard.WithBackend(p.Backend),
		hoard.WithStats(p.Collector),
		hoard.WithLogger(p.Logger.Named("hoard")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return cache.Close()
		},
	})

	return Result{
		Cache:   cache,
		Backend: p.Backend,
	}, nil
}
