// Package main provides the hoard-bench CLI tool for benchmarking eviction
// strategies against synthetic workloads.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hoardkv/hoard/benchmark/analysis"
	"github.com/hoardkv/hoard/benchmark/reporting"
	"github.com/hoardkv/hoard/benchmark/simulation"
	"github.com/hoardkv/hoard/benchmark/workload"
	"github.com/hoardkv/hoard/internal/backend/membackend"
	"github.com/hoardkv/hoard/internal/stats"
	"github.com/hoardkv/hoard/internal/strategy"
	"github.com/hoardkv/hoard/internal/strategy/arc"
	"github.com/hoardkv/hoard/internal/strategy/lfu"
	"github.com/hoardkv/hoard/internal/strategy/lru"
)

var (
	workloadName  string
	strategyNames []string
	capacity      int
	keyspace      int
	lookups       int
	runs          int
	seed          int64
	outputFormat  string
	outputFile    string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "hoard-bench",
	Short: "Benchmark eviction strategies for hoard",
	Long: `hoard-bench compares eviction strategies under synthetic workloads.

It replays generated key-access traces against each strategy with an
in-memory backend and measures the hit rates they achieve.

Examples:
  # Compare LRU and ARC under a Zipf workload
  hoard-bench run --workload zipf --strategies lru,arc

  # A scan-heavy workload with a small cache
  hoard-bench run --workload scan --capacity 500

  # Output as markdown report
  hoard-bench run --format markdown --output report.md`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark simulation",
	RunE:  runBenchmark,
}

func init() {
	runCmd.Flags().StringVarP(&workloadName, "workload", "w", "zipf", "workload shape: zipf, uniform, scan, phase-shift")
	runCmd.Flags().StringSliceVarP(&strategyNames, "strategies", "s", []string{"lru", "lfu", "arc"}, "strategies to compare")
	runCmd.Flags().IntVar(&capacity, "capacity", 1000, "cache capacity in entries")
	runCmd.Flags().IntVar(&keyspace, "keys", 10000, "keyspace size")
	runCmd.Flags().IntVar(&lookups, "lookups", 50000, "lookups per run")
	runCmd.Flags().IntVar(&runs, "runs", 20, "number of runs per strategy")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	runCmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, markdown")
	runCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	gen, err := workload.ByName(workloadName)
	if err != nil {
		return err
	}

	// Generate traces.
	if verbose {
		fmt.Fprintf(os.Stderr, "Generating %d %s traces of %d lookups...\n", runs, gen.Name(), lookups)
	}
	rng := rand.New(rand.NewSource(seed))
	traces := make([]workload.Trace, runs)
	for i := range traces {
		traces[i] = gen.Generate(rng, keyspace, lookups)
	}

	// Create strategy factories.
	factories := make([]simulation.Factory, 0, len(strategyNames))
	for _, name := range strategyNames {
		factory, err := createFactory(name)
		if err != nil {
			return err
		}
		factories = append(factories, factory)
	}

	// Run simulation.
	if verbose {
		fmt.Fprintln(os.Stderr, "Running simulation...")
	}
	sim := simulation.NewSimulator(time.Hour, factories...)
	results, err := sim.ReplayTraces(context.Background(), traces)
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	// Perform statistical comparison.
	var comparison *analysis.StrategyComparison
	if len(factories) >= 2 {
		comparison = analysis.CompareStrategies(
			results[factories[0].Name],
			results[factories[1].Name],
			10000, // Bootstrap iterations.
			0.95,  // 95% confidence.
		)
	}

	// Output results.
	var output io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	switch outputFormat {
	case "markdown":
		return writeMarkdownReport(output, results, comparison)
	default:
		return writeTextReport(output, results, comparison)
	}
}

func createFactory(name string) (simulation.Factory, error) {
	noop := stats.NewNoop()
	nop := zap.NewNop()

	switch strings.ToLower(name) {
	case "lru":
		return simulation.Factory{
			Name: "lru",
			New: func() (strategy.Strategy, error) {
				return lru.New(membackend.New(), capacity, noop, nop)
			},
		}, nil
	case "lfu":
		return simulation.Factory{
			Name: "lfu",
			New: func() (strategy.Strategy, error) {
				return lfu.New(membackend.New(), capacity, noop, nop), nil
			},
		}, nil
	case "arc":
		return simulation.Factory{
			Name: "arc",
			New: func() (strategy.Strategy, error) {
				return arc.New(membackend.New(), capacity, noop, nop), nil
			},
		}, nil
	default:
		return simulation.Factory{}, fmt.Errorf("unknown strategy: %s", name)
	}
}

func writeTextReport(w io.Writer, results map[string]*simulation.AggregateResult, comp *analysis.StrategyComparison) error {
	fmt.Fprintf(w, "Hoard Eviction Strategy Benchmark\n")
	fmt.Fprintf(w, "=================================\n\n")
	fmt.Fprintf(w, "Workload: %s\n", workloadName)
	fmt.Fprintf(w, "Keyspace: %d keys\n", keyspace)
	fmt.Fprintf(w, "Capacity: %d entries\n", capacity)
	fmt.Fprintf(w, "Runs:     %d x %d lookups\n\n", runs, lookups)

	fmt.Fprintf(w, "Results:\n")
	fmt.Fprintf(w, "--------\n\n")

	for name, res := range results {
		metrics := simulation.ComputeMetrics(res)
		fmt.Fprintf(w, "%s:\n", name)
		fmt.Fprintf(w, "  Hit rate:        %.1f%%\n", metrics.HitRate*100)
		fmt.Fprintf(w, "  Median run:      %.1f%%\n", metrics.MedianHitRate*100)
		fmt.Fprintf(w, "  Worst run:       %.1f%%\n", metrics.MinHitRate*100)
		fmt.Fprintf(w, "  Unique keys hit: %d\n\n", metrics.UniqueKeysHit)
	}

	if comp != nil {
		fmt.Fprintln(w, comp.Summary())
	}
	return nil
}

func writeMarkdownReport(w io.Writer, results map[string]*simulation.AggregateResult, comp *analysis.StrategyComparison) error {
	report := reporting.NewMarkdownReport(w)
	report.WriteHeader("Hoard Eviction Strategy Benchmark")
	report.WriteMethodology(workloadName, runs, lookups, capacity)
	report.WriteSummaryTable(results)
	if comp != nil {
		report.WriteComparison(comp)
	}
	for name, res := range results {
		report.WriteDistributionChart(name, res.HitRatePerRun)
	}
	report.WriteFooter()
	return nil
}
