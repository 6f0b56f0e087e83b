// Package workload generates synthetic key-access traces for benchmarking
// eviction strategies.
package workload

import (
	"fmt"
	"math/rand"
)

// Trace is one run of key accesses in order.
type Trace []string

// Generator produces access traces for a named workload shape.
type Generator interface {
	// Name returns a human-readable name for this workload.
	Name() string

	// Generate produces one trace of n accesses over a keyspace of the
	// given size, using rng for reproducibility.
	Generate(rng *rand.Rand, keyspace, n int) Trace
}

// Zipf models skewed popularity: a few hot keys take most accesses.
// This is the shape most real cache workloads have.
type Zipf struct {
	// S is the Zipf skew exponent; must be > 1. Higher is more skewed.
	S float64
}

// Name returns the workload name.
func (z Zipf) Name() string { return "zipf" }

// Generate produces a Zipf-distributed trace.
func (z Zipf) Generate(rng *rand.Rand, keyspace, n int) Trace {
	s := z.S
	if s <= 1 {
		s = 1.1
	}
	dist := rand.NewZipf(rng, s, 1, uint64(keyspace-1))

	trace := make(Trace, n)
	for i := range trace {
		trace[i] = keyName(int(dist.Uint64()))
	}
	return trace
}

// Uniform models no locality at all: every key is equally likely.
// The worst case for any eviction strategy.
type Uniform struct{}

// Name returns the workload name.
func (Uniform) Name() string { return "uniform" }

// Generate produces a uniformly random trace.
func (Uniform) Generate(rng *rand.Rand, keyspace, n int) Trace {
	trace := make(Trace, n)
	for i := range trace {
		trace[i] = keyName(rng.Intn(keyspace))
	}
	return trace
}

// Scan models repeated sequential sweeps over the keyspace, the pattern
// that pollutes LRU caches.
type Scan struct{}

// Name returns the workload name.
func (Scan) Name() string { return "scan" }

// Generate produces a sequential sweep trace.
func (Scan) Generate(rng *rand.Rand, keyspace, n int) Trace {
	trace := make(Trace, n)
	for i := range trace {
		trace[i] = keyName(i % keyspace)
	}
	return trace
}

// PhaseShift models a hot set that moves: accesses are Zipf-skewed within a
// window that jumps to a different part of the keyspace every phase. Tests
// how quickly a strategy adapts when yesterday's hot keys go cold.
type PhaseShift struct {
	// Phases is how many times the hot window moves. Default 4.
	Phases int

	// S is the Zipf skew within each window.
	S float64
}

// Name returns the workload name.
func (PhaseShift) Name() string { return "phase-shift" }

// Generate produces a phase-shifting trace.
func (p PhaseShift) Generate(rng *rand.Rand, keyspace, n int) Trace {
	phases := p.Phases
	if phases < 1 {
		phases = 4
	}
	s := p.S
	if s <= 1 {
		s = 1.2
	}

	window := keyspace / phases
	if window < 1 {
		window = 1
	}
	perPhase := n / phases

	trace := make(Trace, 0, n)
	for phase := 0; phase < phases; phase++ {
		dist := rand.NewZipf(rng, s, 1, uint64(window-1))
		offset := phase * window
		for i := 0; i < perPhase; i++ {
			trace = append(trace, keyName(offset+int(dist.Uint64())))
		}
	}
	for len(trace) < n {
		trace = append(trace, keyName(rng.Intn(keyspace)))
	}
	return trace
}

// ByName returns the generator for a workload name.
func ByName(name string) (Generator, error) {
	switch name {
	case "zipf":
		return Zipf{S: 1.2}, nil
	case "uniform":
		return Uniform{}, nil
	case "scan":
		return Scan{}, nil
	case "phase-shift":
		return PhaseShift{}, nil
	default:
		return nil, fmt.Errorf("unknown workload %q", name)
	}
}

func keyName(i int) string {
	return fmt.Sprintf("key-%d", i)
}
