// Package simulation replays access traces against eviction strategies and
// measures the hit rates they achieve.
package simulation

import (
	"context"
	"errors"
	"time"

	"github.com/hoardkv/hoard/benchmark/workload"
	"github.com/hoardkv/hoard/internal/backend"
	"github.com/hoardkv/hoard/internal/strategy"
)

// Factory builds a fresh strategy instance for each run. Strategies are
// stateful, so runs must not share them.
type Factory struct {
	Name string
	New  func() (strategy.Strategy, error)
}

// RunResult holds the outcome of replaying one trace against one strategy.
type RunResult struct {
	StrategyName string
	Lookups      int
	Hits         int
	KeyHits      map[string]int
}

// HitRate returns the fraction of lookups served from cache.
func (r *RunResult) HitRate() float64 {
	if r.Lookups == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Lookups)
}

// AggregateResult accumulates results across runs for one strategy.
type AggregateResult struct {
	StrategyName  string
	TotalLookups  int
	TotalHits     int
	HitRatePerRun []float64
	KeyHits       map[string]int
}

// HitRate returns the overall fraction of lookups served from cache.
func (a *AggregateResult) HitRate() float64 {
	if a.TotalLookups == 0 {
		return 0
	}
	return float64(a.TotalHits) / float64(a.TotalLookups)
}

// Simulator replays traces against a set of strategies.
type Simulator struct {
	factories []Factory
	ttl       time.Duration
}

// NewSimulator creates a Simulator. Each strategy gets a fresh instance per
// run; values are stored with the given ttl.
func NewSimulator(ttl time.Duration, factories ...Factory) *Simulator {
	return &Simulator{
		factories: factories,
		ttl:       ttl,
	}
}

// ReplayTrace replays one trace against every strategy. A lookup that
// misses is followed by a store of that key, modeling a read-through cache.
func (s *Simulator) ReplayTrace(ctx context.Context, trace workload.Trace) (map[string]*RunResult, error) {
	results := make(map[string]*RunResult, len(s.factories))

	for _, factory := range s.factories {
		st, err := factory.New()
		if err != nil {
			return nil, err
		}

		result := &RunResult{
			StrategyName: factory.Name,
			KeyHits:      make(map[string]int),
		}
		for _, key := range trace {
			result.Lookups++
			_, err := st.Get(ctx, key)
			switch {
			case err == nil:
				result.Hits++
				result.KeyHits[key]++
			case errors.Is(err, backend.ErrNotFound):
				if err := st.Set(ctx, key, []byte(key), s.ttl); err != nil {
					st.Close()
					return nil, err
				}
			default:
				st.Close()
				return nil, err
			}
		}

		if err := st.Close(); err != nil {
			return nil, err
		}
		results[factory.Name] = result
	}

	return results, nil
}

// ReplayTraces replays multiple traces and aggregates per-strategy results.
func (s *Simulator) ReplayTraces(ctx context.Context, traces []workload.Trace) (map[string]*AggregateResult, error) {
	results := make(map[string]*AggregateResult, len(s.factories))
	for _, factory := range s.factories {
		results[factory.Name] = &AggregateResult{
			StrategyName:  factory.Name,
			HitRatePerRun: make([]float64, 0, len(traces)),
			KeyHits:       make(map[string]int),
		}
	}

	for _, trace := range traces {
		runResults, err := s.ReplayTrace(ctx, trace)
		if err != nil {
			return nil, err
		}
		for name, rr := range runResults {
			agg := results[name]
			agg.TotalLookups += rr.Lookups
			agg.TotalHits += rr.Hits
			agg.HitRatePerRun = append(agg.HitRatePerRun, rr.HitRate())
			for key, hits := range rr.KeyHits {
				agg.KeyHits[key] += hits
			}
		}
	}

	return results, nil
}
