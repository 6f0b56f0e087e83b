package analysis

import (
	"math"
	"testing"
)

func TestRankTest(t *testing.T) {
	tests := []struct {
		name       string
		a          HitRates
		b          HitRates
		wantSignif bool
	}{
		{
			name:       "identical runs",
			a:          HitRates{0.70, 0.72, 0.71, 0.73, 0.70},
			b:          HitRates{0.70, 0.72, 0.71, 0.73, 0.70},
			wantSignif: false,
		},
		{
			name:       "clear winner",
			a:          HitRates{0.41, 0.42, 0.43, 0.44, 0.45},
			b:          HitRates{0.80, 0.81, 0.82, 0.83, 0.84},
			wantSignif: true,
		},
		{
			name:       "overlapping runs",
			a:          HitRates{0.60, 0.62, 0.64, 0.66, 0.68},
			b:          HitRates{0.62, 0.64, 0.66, 0.68, 0.70},
			wantSignif: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RankTest(tt.a, tt.b)
			if result.Significant != tt.wantSignif {
				t.Errorf("Significant = %v, want %v (p=%f)", result.Significant, tt.wantSignif, result.PValue)
			}
			if result.PValue < 0 || result.PValue > 1 {
				t.Errorf("PValue = %f, want in [0, 1]", result.PValue)
			}
		})
	}
}

func TestRankTest_EmptySample(t *testing.T) {
	result := RankTest(HitRates{}, HitRates{0.5, 0.6})
	if result.Significant {
		t.Error("empty sample reported as significant")
	}
}

func TestRankTest_TieHeavySamples(t *testing.T) {
	// A tiny keyspace makes every run land on the same few hit rates.
	a := HitRates{0.5, 0.5, 0.5, 0.5, 0.5}
	b := HitRates{0.5, 0.5, 0.5, 0.5, 0.5}

	result := RankTest(a, b)
	if result.Significant {
		t.Errorf("all-ties samples reported as significant (p=%f)", result.PValue)
	}
	if math.IsNaN(result.PValue) {
		t.Error("PValue = NaN for all-ties samples")
	}
}

func TestHitRateEffect(t *testing.T) {
	tests := []struct {
		name     string
		a        HitRates
		b        HitRates
		wantSize string
	}{
		{
			name:     "no gap",
			a:        HitRates{0.70, 0.71, 0.72, 0.73},
			b:        HitRates{0.70, 0.71, 0.72, 0.73},
			wantSize: "negligible",
		},
		{
			name:     "wide gap",
			a:        HitRates{0.30, 0.31, 0.32, 0.33},
			b:        HitRates{0.80, 0.81, 0.82, 0.83},
			wantSize: "large",
		},
		{
			name:     "empty sample",
			a:        HitRates{},
			b:        HitRates{0.5},
			wantSize: "undefined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effect := HitRateEffect(tt.a, tt.b)
			if effect.Interpretation != tt.wantSize {
				t.Errorf("Interpretation = %q, want %q (d=%f)", effect.Interpretation, tt.wantSize, effect.CohensD)
			}
		})
	}
}

func TestHitRateEffect_SignFollowsGap(t *testing.T) {
	better := HitRates{0.80, 0.82, 0.84}
	worse := HitRates{0.40, 0.42, 0.44}

	if d := HitRateEffect(better, worse).CohensD; d <= 0 {
		t.Errorf("CohensD = %f, want > 0 when first sample is better", d)
	}
	if d := HitRateEffect(worse, better).CohensD; d >= 0 {
		t.Errorf("CohensD = %f, want < 0 when first sample is worse", d)
	}
}

func TestBootstrapHitRateDiff(t *testing.T) {
	a := HitRates{0.80, 0.81, 0.82, 0.83, 0.84}
	b := HitRates{0.60, 0.61, 0.62, 0.63, 0.64}

	result := BootstrapHitRateDiff(a, b, 1000, 0.95)

	if got, want := result.MeanDiff, 0.2; math.Abs(got-want) > 1e-9 {
		t.Errorf("MeanDiff = %f, want %f", got, want)
	}
	if result.LowerBound > result.UpperBound {
		t.Errorf("interval inverted: [%f, %f]", result.LowerBound, result.UpperBound)
	}
	if result.LowerBound > result.MeanDiff || result.UpperBound < result.MeanDiff {
		t.Errorf("interval [%f, %f] does not cover MeanDiff %f",
			result.LowerBound, result.UpperBound, result.MeanDiff)
	}
	// A 0.2 gap with 0.02 spread should not straddle zero.
	if result.LowerBound <= 0 {
		t.Errorf("LowerBound = %f, want > 0 for a clear gap", result.LowerBound)
	}
}

func TestBootstrapHitRateDiff_Reproducible(t *testing.T) {
	a := HitRates{0.70, 0.72, 0.74, 0.76}
	b := HitRates{0.60, 0.62, 0.64, 0.66}

	first := BootstrapHitRateDiff(a, b, 500, 0.95)
	second := BootstrapHitRateDiff(a, b, 500, 0.95)

	if first.LowerBound != second.LowerBound || first.UpperBound != second.UpperBound {
		t.Errorf("bootstrap not reproducible: [%f, %f] vs [%f, %f]",
			first.LowerBound, first.UpperBound, second.LowerBound, second.UpperBound)
	}
}

func TestSummarize(t *testing.T) {
	rates := HitRates{0.50, 0.60, 0.70, 0.80, 0.90}

	s := Summarize(rates)
	if s.Runs != 5 {
		t.Errorf("Runs = %d, want 5", s.Runs)
	}
	if got, want := s.Mean, 0.70; math.Abs(got-want) > 1e-9 {
		t.Errorf("Mean = %f, want %f", got, want)
	}
	if s.Min != 0.50 || s.Max != 0.90 {
		t.Errorf("Min/Max = %f/%f, want 0.50/0.90", s.Min, s.Max)
	}
	if s.Median != 0.70 {
		t.Errorf("Median = %f, want 0.70", s.Median)
	}
	if s.P10 > s.Median || s.Median > s.P90 {
		t.Errorf("quantiles out of order: P10=%f Median=%f P90=%f", s.P10, s.Median, s.P90)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(HitRates{})
	if s.Runs != 0 || s.Mean != 0 {
		t.Errorf("Summarize(empty) = %+v, want zero value", s)
	}
}
