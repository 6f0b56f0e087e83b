package analysis

import (
	"fmt"

	"github.com/hoardkv/hoard/benchmark/simulation"
)

// StrategyComparison contains a full statistical comparison between two
// strategies' per-run hit rates.
type StrategyComparison struct {
	Strategy1       string
	Strategy2       string
	Stats1          *HitRateSummary
	Stats2          *HitRateSummary
	RankTest        *RankTestResult
	EffectSize      *Effect
	BootstrapCI     *BootstrapResult
	Winner          string // Name of strategy with the higher hit rate, or "tie".
	WinnerConfident bool   // True if the rank test is significant.
}

// CompareStrategies compares two strategies over their per-run hit rates.
// Hit rates are higher-is-better.
func CompareStrategies(
	result1, result2 *simulation.AggregateResult,
	bootstrapIterations int,
	confidence float64,
) *StrategyComparison {
	rates1 := HitRates(result1.HitRatePerRun)
	rates2 := HitRates(result2.HitRatePerRun)

	rt := RankTest(rates1, rates2)
	stats1 := Summarize(rates1)
	stats2 := Summarize(rates2)

	var winner string
	var confident bool
	switch {
	case stats1.Mean > stats2.Mean:
		winner = result1.StrategyName
		confident = rt.Significant
	case stats2.Mean > stats1.Mean:
		winner = result2.StrategyName
		confident = rt.Significant
	default:
		winner = "tie"
	}

	return &StrategyComparison{
		Strategy1:       result1.StrategyName,
		Strategy2:       result2.StrategyName,
		Stats1:          stats1,
		Stats2:          stats2,
		RankTest:        rt,
		EffectSize:      HitRateEffect(rates1, rates2),
		BootstrapCI:     BootstrapHitRateDiff(rates1, rates2, bootstrapIterations, confidence),
		Winner:          winner,
		WinnerConfident: confident,
	}
}

// Summary returns a human-readable summary of the comparison.
func (c *StrategyComparison) Summary() string {
	sig := "not statistically significant"
	if c.RankTest.Significant {
		sig = fmt.Sprintf("statistically significant (p=%.4f)", c.RankTest.PValue)
	}

	return fmt.Sprintf(
		"%s vs %s:\n"+
			"  %s: mean=%.4f, median=%.4f, std=%.4f\n"+
			"  %s: mean=%.4f, median=%.4f, std=%.4f\n"+
			"  Difference: %.4f hit rate (%.1f%%)\n"+
			"  Effect size: %.2f (%s)\n"+
			"  Result: %s, %s",
		c.Strategy1, c.Strategy2,
		c.Strategy1, c.Stats1.Mean, c.Stats1.Median, c.Stats1.StdDev,
		c.Strategy2, c.Stats2.Mean, c.Stats2.Median, c.Stats2.StdDev,
		c.Stats1.Mean-c.Stats2.Mean,
		safePctDiff(c.Stats1.Mean, c.Stats2.Mean),
		c.EffectSize.CohensD, c.EffectSize.Interpretation,
		c.Winner, sig,
	)
}

func safePctDiff(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}

// MultiStrategyComparison compares multiple strategies against a baseline.
type MultiStrategyComparison struct {
	Baseline    string
	Comparisons []*StrategyComparison
}

// CompareAll compares every strategy against the named baseline.
func CompareAll(
	results map[string]*simulation.AggregateResult,
	baseline string,
	bootstrapIterations int,
	confidence float64,
) *MultiStrategyComparison {
	baseResult, ok := results[baseline]
	if !ok {
		return nil
	}

	multi := &MultiStrategyComparison{Baseline: baseline}
	for name, result := range results {
		if name == baseline {
			continue
		}
		multi.Comparisons = append(multi.Comparisons, CompareStrategies(baseResult, result, bootstrapIterations, confidence))
	}
	return multi
}
