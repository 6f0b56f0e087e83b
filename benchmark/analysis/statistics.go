// Package analysis decides which cache strategy wins a benchmark. The
// simulator hands it per-run hit rates; a winner is only declared when a
// rank test, an effect size, and a bootstrap interval agree the gap is real
// rather than run-to-run noise.
package analysis

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// HitRates is one strategy's per-run hit rates, each in [0, 1].
type HitRates []float64

// significanceLevel is the two-tailed alpha for the rank test.
const significanceLevel = 0.05

// bootstrapSeed fixes the resampling sequence so reports are reproducible.
const bootstrapSeed = 1

// RankTestResult is the outcome of a Mann-Whitney U test over two
// strategies' hit rates.
type RankTestResult struct {
	U           float64
	Z           float64
	PValue      float64
	Significant bool
}

// RankTest runs a Mann-Whitney U test on two hit-rate samples. The test is
// non-parametric, which matters here: hit rates are bounded in [0, 1] and
// skewed, so a t-test's normality assumption does not hold. Ranks are
// tie-averaged because small keyspaces produce many identical rates.
func RankTest(a, b HitRates) *RankTestResult {
	n1, n2 := float64(len(a)), float64(len(b))
	if n1 == 0 || n2 == 0 {
		return &RankTestResult{}
	}

	type run struct {
		rate  float64
		fromA bool
	}
	all := make([]run, 0, len(a)+len(b))
	for _, r := range a {
		all = append(all, run{rate: r, fromA: true})
	}
	for _, r := range b {
		all = append(all, run{rate: r})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].rate < all[j].rate })

	ranks := make([]float64, len(all))
	for lo := 0; lo < len(all); {
		hi := lo
		for hi < len(all) && all[hi].rate == all[lo].rate {
			hi++
		}
		mid := float64(lo+hi+1) / 2
		for k := lo; k < hi; k++ {
			ranks[k] = mid
		}
		lo = hi
	}

	var rankSumA float64
	for i, r := range all {
		if r.fromA {
			rankSumA += ranks[i]
		}
	}

	uA := rankSumA - n1*(n1+1)/2
	u := math.Min(uA, n1*n2-uA)

	mean := n1 * n2 / 2
	sd := math.Sqrt(n1 * n2 * (n1 + n2 + 1) / 12)
	var z float64
	if sd > 0 {
		z = (u - mean) / sd
	}

	p := 2 * distuv.UnitNormal.CDF(-math.Abs(z))
	if p > 1 {
		p = 1
	}

	return &RankTestResult{
		U:           u,
		Z:           z,
		PValue:      p,
		Significant: p < significanceLevel,
	}
}

// Effect sizes the hit-rate gap in pooled standard deviations (Cohen's d).
// A significant rank test with a negligible effect means the strategies are
// interchangeable in practice.
type Effect struct {
	CohensD        float64
	Interpretation string
}

// HitRateEffect computes Cohen's d for two hit-rate samples.
func HitRateEffect(a, b HitRates) *Effect {
	if len(a) == 0 || len(b) == 0 {
		return &Effect{Interpretation: "undefined"}
	}

	meanA, stdA := stat.MeanStdDev(a, nil)
	meanB, stdB := stat.MeanStdDev(b, nil)
	n1, n2 := float64(len(a)), float64(len(b))
	pooled := math.Sqrt(((n1-1)*stdA*stdA + (n2-1)*stdB*stdB) / (n1 + n2 - 2))

	var d float64
	if pooled > 0 {
		d = (meanA - meanB) / pooled
	}

	return &Effect{CohensD: d, Interpretation: interpretCohensD(math.Abs(d))}
}

func interpretCohensD(d float64) string {
	switch {
	case d < 0.2:
		return "negligible"
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	default:
		return "large"
	}
}

// BootstrapResult bounds the true hit-rate difference between two strategies.
type BootstrapResult struct {
	MeanDiff   float64
	LowerBound float64
	UpperBound float64
	Confidence float64
}

// BootstrapHitRateDiff resamples both hit-rate samples with replacement and
// returns a percentile confidence interval for the mean difference. An
// interval that straddles zero means the benchmark cannot separate the two
// strategies at the given confidence.
func BootstrapHitRateDiff(a, b HitRates, iterations int, confidence float64) *BootstrapResult {
	if len(a) == 0 || len(b) == 0 || iterations <= 0 {
		return &BootstrapResult{Confidence: confidence}
	}

	rng := rand.New(rand.NewSource(bootstrapSeed))
	diffs := make([]float64, iterations)
	for i := range diffs {
		diffs[i] = resampleMean(rng, a) - resampleMean(rng, b)
	}
	sort.Float64s(diffs)

	alpha := 1 - confidence
	lower := int(alpha / 2 * float64(iterations))
	upper := int((1 - alpha/2) * float64(iterations))
	if upper >= iterations {
		upper = iterations - 1
	}

	return &BootstrapResult{
		MeanDiff:   stat.Mean(a, nil) - stat.Mean(b, nil),
		LowerBound: diffs[lower],
		UpperBound: diffs[upper],
		Confidence: confidence,
	}
}

func resampleMean(rng *rand.Rand, sample HitRates) float64 {
	var sum float64
	for range sample {
		sum += sample[rng.Intn(len(sample))]
	}
	return sum / float64(len(sample))
}

// HitRateSummary describes one strategy's hit-rate distribution across runs.
type HitRateSummary struct {
	Runs   int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	P10    float64
	P90    float64
}

// Summarize describes a hit-rate sample. P10 is reported alongside the mean
// because for a cache the hit rate a bad run still achieves matters as much
// as the average.
func Summarize(rates HitRates) *HitRateSummary {
	if len(rates) == 0 {
		return &HitRateSummary{}
	}

	sorted := make([]float64, len(rates))
	copy(sorted, rates)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(rates, nil)
	if math.IsNaN(std) {
		std = 0
	}

	return &HitRateSummary{
		Runs:   len(rates),
		Mean:   mean,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		StdDev: std,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P10:    stat.Quantile(0.1, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
}
