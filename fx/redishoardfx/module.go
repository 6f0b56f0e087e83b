// Package redishoardfx provides an fx module for a redis-backed cache.
package redishoardfx

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hoardkv/hoard"
	"github.com/hoardkv/hoard/internal/backend/redisbackend"
	"github.com/hoardkv/hoard/internal/lock/redislock"
	"github.com/hoardkv/hoard/internal/stats"
	"github.com/hoardkv/hoard/internal/stats/prometheus"
)

// Config holds configuration for the redis-backed cache.
type Config struct {
	// Addr is the redis server address, host:port.
	Addr string

	// Password authenticates against the server if set.
	Password string

	// DB selects the redis logical database.
	DB int

	// Namespace prefixes every key. Default is "cache".
	Namespace string

	// DefaultTTL applies to writes without an explicit TTL.
	DefaultTTL time.Duration

	// LocalCacheSize is the in-process tier capacity in entries.
	// Default is 1000; 0 uses the default, negative disables the tier.
	LocalCacheSize int
}

// Module provides a redis-backed cache with prometheus metrics and a
// redis-based distributed lock.
// Requires a *zap.Logger to be provided.
var Module = fx.Module("redishoard",
	fx.Provide(
		newStatsCollector,
		newBackend,
		newCache,
	),
)

func newStatsCollector() stats.Collector {
	return prometheus.New(promclient.DefaultRegisterer)
}

func newBackend(cfg Config) *redisbackend.Backend {
	return redisbackend.New(redisbackend.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Params holds dependencies for creating the cache.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Backend   *redisbackend.Backend
	Lifecycle fx.Lifecycle
}

// Result holds the provided cache.
type Result struct {
	fx.Out

	Cache *hoard.Cache
}

func newCache(p Params) (Result, error) {
	localSize := p.Config.LocalCacheSize
	switch {
	case localSize == 0:
		localSize = 1000
	case localSize < 0:
		localSize = 0
	}

	opts := []hoard.Option{
		hoard.WithBackend(p.Backend),
		hoard.WithLocker(redislock.New(p.Backend.Client(), 30*time.Second)),
		hoard.WithLocalCacheSize(localSize),
		hoard.WithStats(p.Collector),
		hoard.WithLogger(p.Logger.Named("hoard")),
	}
	if p.Config.Namespace != "" {
		opts = append(opts, hoard.WithNamespace(p.Config.Namespace))
	}
	if p.Config.DefaultTTL > 0 {
		opts = append(opts, hoard.WithDefaultTTL(p.Config.DefaultTTL))
	}

	cache, err := hoard.New(opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return p.Backend.Ping(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return cache.Close()
		},
	})

	return Result{Cache: cache}, nil
}
