// Package reporting provides report generation for benchmark results.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hoardkv/hoard/benchmark/analysis"
	"github.com/hoardkv/hoard/benchmark/simulation"
)

// MarkdownReport generates benchmark reports in Markdown format.
type MarkdownReport struct {
	w io.Writer
}

// NewMarkdownReport creates a new Markdown report writer.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w}
}

// WriteHeader writes the report header.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\n", title)
	fmt.Fprintf(r.w, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
}

// WriteMethodology writes the methodology section.
func (r *MarkdownReport) WriteMethodology(workloadName string, runs, lookups, capacity int) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Workload:** %s\n", workloadName)
	fmt.Fprintf(r.w, "- **Runs:** %d\n", runs)
	fmt.Fprintf(r.w, "- **Lookups per run:** %d\n", lookups)
	fmt.Fprintf(r.w, "- **Cache capacity:** %d entries\n", capacity)
	fmt.Fprintln(r.w, "- **Metric:** Cache hit rate per run (higher is better)")
	fmt.Fprintln(r.w, "- **Statistical tests:** Mann-Whitney U (non-parametric), Cohen's d effect size")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes the summary comparison table.
func (r *MarkdownReport) WriteSummaryTable(results map[string]*simulation.AggregateResult) {
	fmt.Fprintln(r.w, "## Summary")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Strategy | Hit Rate | Median Run | Worst Run | Unique Keys Hit |")
	fmt.Fprintln(r.w, "|----------|----------|------------|-----------|-----------------|")

	for name, res := range results {
		metrics := simulation.ComputeMetrics(res)
		fmt.Fprintf(r.w, "| %s | %.1f%% | %.1f%% | %.1f%% | %d |\n",
			name, metrics.HitRate*100, metrics.MedianHitRate*100,
			metrics.MinHitRate*100, metrics.UniqueKeysHit)
	}
	fmt.Fprintln(r.w)
}

// WriteComparison writes a detailed comparison section.
func (r *MarkdownReport) WriteComparison(comp *analysis.StrategyComparison) {
	fmt.Fprintf(r.w, "## %s vs %s\n\n", comp.Strategy1, comp.Strategy2)

	// Statistics table.
	fmt.Fprintln(r.w, "### Descriptive Statistics")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Metric | "+comp.Strategy1+" | "+comp.Strategy2+" |")
	fmt.Fprintln(r.w, "|--------|"+strings.Repeat("-", len(comp.Strategy1)+2)+"|"+strings.Repeat("-", len(comp.Strategy2)+2)+"|")
	fmt.Fprintf(r.w, "| Mean | %.4f | %.4f |\n", comp.Stats1.Mean, comp.Stats2.Mean)
	fmt.Fprintf(r.w, "| Median | %.4f | %.4f |\n", comp.Stats1.Median, comp.Stats2.Median)
	fmt.Fprintf(r.w, "| Std Dev | %.4f | %.4f |\n", comp.Stats1.StdDev, comp.Stats2.StdDev)
	fmt.Fprintf(r.w, "| Min | %.4f | %.4f |\n", comp.Stats1.Min, comp.Stats2.Min)
	fmt.Fprintf(r.w, "| Max | %.4f | %.4f |\n", comp.Stats1.Max, comp.Stats2.Max)
	fmt.Fprintln(r.w)

	// Statistical tests.
	fmt.Fprintln(r.w, "### Statistical Analysis")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		comp.RankTest.U, comp.RankTest.Z, comp.RankTest.PValue)
	fmt.Fprintf(r.w, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		comp.EffectSize.CohensD, comp.EffectSize.Interpretation)
	fmt.Fprintf(r.w, "- **95%% CI for mean difference:** [%.4f, %.4f]\n",
		comp.BootstrapCI.LowerBound, comp.BootstrapCI.UpperBound)
	fmt.Fprintln(r.w)

	// Conclusion.
	fmt.Fprintln(r.w, "### Conclusion")
	fmt.Fprintln(r.w)
	if comp.WinnerConfident {
		fmt.Fprintf(r.w, "**%s** shows statistically significant improvement over %s ",
			comp.Winner, otherStrategy(comp.Winner, comp.Strategy1, comp.Strategy2))
		fmt.Fprintf(r.w, "(p < 0.05, effect size: %s).\n", comp.EffectSize.Interpretation)
	} else {
		fmt.Fprintln(r.w, "No statistically significant difference detected between strategies (p >= 0.05).")
	}
	fmt.Fprintln(r.w)
}

func otherStrategy(winner, s1, s2 string) string {
	if winner == s1 {
		return s2
	}
	return s1
}

// WriteDistributionChart writes an ASCII histogram of per-run hit rates.
func (r *MarkdownReport) WriteDistributionChart(name string, rates []float64) {
	fmt.Fprintf(r.w, "### %s Hit Rate Distribution\n\n", name)
	fmt.Fprintln(r.w, "```")

	// Histogram over ten percent-wide buckets.
	hist := makeHistogram(rates, 10)
	maxCount := 0
	for _, count := range hist {
		if count > maxCount {
			maxCount = count
		}
	}

	width := 40
	for i, count := range hist {
		barLen := 0
		if maxCount > 0 {
			barLen = count * width / maxCount
		}
		bar := strings.Repeat("█", barLen)
		fmt.Fprintf(r.w, "%3d%%-%3d%% │ %s %d\n", i*10, (i+1)*10, bar, count)
	}

	fmt.Fprintln(r.w, "```")
	fmt.Fprintln(r.w)
}

func makeHistogram(rates []float64, buckets int) []int {
	hist := make([]int, buckets)
	for _, rate := range rates {
		bucket := int(rate * float64(buckets))
		if bucket >= buckets {
			bucket = buckets - 1
		}
		if bucket < 0 {
			bucket = 0
		}
		hist[bucket]++
	}
	return hist
}

// WriteFooter writes the report footer.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprintln(r.w, "---")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "*Report generated by hoard-bench*")
}
