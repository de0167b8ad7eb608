package regime

import (
	"testing"
	"time"

	"dex-analytics-bot/internal/series"
)

func hourlySeries(volumes []float64) []series.Bucket {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	buckets := make([]series.Bucket, len(volumes))
	for i, v := range volumes {
		buckets[i] = series.Bucket{Start: now.Add(-time.Duration(i+1) * time.Hour), Volume: v}
	}
	return buckets
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestClassifyQuiet(t *testing.T) {
	c := NewClassifier()
	got := c.Classify("pool-a", hourlySeries(repeat(5, 48)))

	if got.Regime != Quiet {
		t.Errorf("regime = %s, want quiet", got.Regime)
	}
	if got.RiskLevel != RiskHigh {
		t.Errorf("risk = %s, want high", got.RiskLevel)
	}
	if got.PoolID != "pool-a" {
		t.Errorf("pool = %s, want pool-a", got.PoolID)
	}
}

func TestClassifyVolatile(t *testing.T) {
	c := NewClassifier()
	// Alternating spikes: mean 505, stdev ~495, cv ~0.98.
	volumes := make([]float64, 48)
	for i := range volumes {
		if i%2 == 0 {
			volumes[i] = 1000
		} else {
			volumes[i] = 10
		}
	}
	got := c.Classify("pool-a", hourlySeries(volumes))

	if got.Regime != Volatile {
		t.Errorf("regime = %s, want volatile (cv = %.2f)", got.Regime, got.VolumeCV)
	}
	if got.RiskLevel != RiskHigh {
		t.Errorf("risk = %s, want high", got.RiskLevel)
	}
}

func TestClassifyTrending(t *testing.T) {
	c := NewClassifier()
	// Steep climb: slope 380/hour against a mean of 590 gives trend strength
	// ~0.64 while the cv stays under the volatile threshold.
	volumes := []float64{1160, 780, 400, 20} // most-recent-first
	got := c.Classify("pool-a", hourlySeries(volumes))

	if got.Regime != Trending {
		t.Errorf("regime = %s, want trending (strength = %.2f, cv = %.2f)", got.Regime, got.TrendStrength, got.VolumeCV)
	}
	if got.RiskLevel != RiskLow {
		t.Errorf("risk = %s, want low", got.RiskLevel)
	}
}

func TestClassifyRanging(t *testing.T) {
	c := NewClassifier()
	// Moderate volume, mild wobble: fails quiet, volatile, and trending.
	volumes := make([]float64, 48)
	for i := range volumes {
		volumes[i] = 100
		if i%3 == 0 {
			volumes[i] = 120
		}
	}
	got := c.Classify("pool-a", hourlySeries(volumes))

	if got.Regime != Ranging {
		t.Errorf("regime = %s, want ranging", got.Regime)
	}
	if got.RiskLevel != RiskMedium {
		t.Errorf("risk = %s, want medium", got.RiskLevel)
	}
}

func TestClassifyCarriesMetadata(t *testing.T) {
	c := NewClassifier()
	got := c.Classify("pool-a", hourlySeries(repeat(5, 48)))

	if len(got.Characteristics) == 0 {
		t.Error("characteristics must be populated")
	}
	if len(got.OptimalStrategies) == 0 {
		t.Error("optimal strategies must be populated")
	}
	if got.AnalyzedAt.IsZero() {
		t.Error("analyzed_at must be set")
	}
}

func TestClassifyEmptySeriesIsQuiet(t *testing.T) {
	c := NewClassifier()
	got := c.Classify("pool-a", nil)
	if got.Regime != Quiet {
		t.Errorf("empty series regime = %s, want quiet", got.Regime)
	}
}
