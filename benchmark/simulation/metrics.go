package simulation

import (
	"sort"
)

// Metrics contains computed metrics from simulation results.
type Metrics struct {
	// Core metrics.
	TotalLookups int
	TotalHits    int
	HitRate      float64

	// Distribution of per-run hit rates.
	MedianHitRate float64
	P10HitRate    float64
	MinHitRate    float64
	MaxHitRate    float64

	// Workload shape metrics.
	UniqueKeysHit    int
	HitConcentration float64 // Gini coefficient of per-key hits.
	TopKeyPct        float64 // Percentage of hits on the top 10% of keys.
}

// ComputeMetrics computes detailed metrics from aggregate results.
func ComputeMetrics(result *AggregateResult) *Metrics {
	m := &Metrics{
		TotalLookups:  result.TotalLookups,
		TotalHits:     result.TotalHits,
		HitRate:       result.HitRate(),
		UniqueKeysHit: len(result.KeyHits),
	}

	if len(result.HitRatePerRun) > 0 {
		sorted := make([]float64, len(result.HitRatePerRun))
		copy(sorted, result.HitRatePerRun)
		sort.Float64s(sorted)

		m.MinHitRate = sorted[0]
		m.MaxHitRate = sorted[len(sorted)-1]
		m.MedianHitRate = percentile(sorted, 50)
		m.P10HitRate = percentile(sorted, 10)
	}

	if len(result.KeyHits) > 0 {
		m.HitConcentration = computeGini(result.KeyHits)
		m.TopKeyPct = computeTopKeyPct(result.KeyHits, result.TotalHits, 0.1)
	}

	return m
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func computeGini(hits map[string]int) float64 {
	if len(hits) == 0 {
		return 0
	}

	values := make([]int, 0, len(hits))
	for _, v := range hits {
		values = append(values, v)
	}
	sort.Ints(values)

	n := float64(len(values))
	var sum, cumulativeSum float64
	for i, v := range values {
		sum += float64(v)
		cumulativeSum += float64(i+1) * float64(v)
	}

	if sum == 0 {
		return 0
	}

	// Gini coefficient formula.
	return (2*cumulativeSum)/(n*sum) - (n+1)/n
}

func computeTopKeyPct(hits map[string]int, total int, topFraction float64) float64 {
	if total == 0 || len(hits) == 0 {
		return 0
	}

	values := make([]int, 0, len(hits))
	for _, v := range hits {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	topCount := int(float64(len(values)) * topFraction)
	if topCount < 1 {
		topCount = 1
	}

	var topHits int
	for i := 0; i < topCount && i < len(values); i++ {
		topHits += values[i]
	}

	return float64(topHits) / float64(total) * 100
}

// MetricsComparison compares metrics between two strategies.
type MetricsComparison struct {
	Strategy1 string
	Strategy2 string

	HitRateDiff    float64 // Positive means Strategy1 hits more often.
	HitRateDiffPct float64
	UniqueKeysDiff int
}

// Compare compares two metrics and returns the differences.
func Compare(m1, m2 *Metrics, name1, name2 string) *MetricsComparison {
	return &MetricsComparison{
		Strategy1:      name1,
		Strategy2:      name2,
		HitRateDiff:    m1.HitRate - m2.HitRate,
		HitRateDiffPct: safeDiffPct(m1.HitRate, m2.HitRate),
		UniqueKeysDiff: m1.UniqueKeysHit - m2.UniqueKeysHit,
	}
}

func safeDiffPct(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}
