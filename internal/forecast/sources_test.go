package forecast

import (
	"testing"
	"time"

	"dex-analytics-bot/internal/patterns"
	"dex-analytics-bot/internal/series"
	"dex-analytics-bot/internal/whales"
)

func hourlyBuckets(volumes []float64) []series.Bucket {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	buckets := make([]series.Bucket, len(volumes))
	for i, v := range volumes {
		buckets[i] = series.Bucket{Start: now.Add(-time.Duration(i+1) * time.Hour), Volume: v}
	}
	return buckets
}

func TestTechnicalSourceProjectsTrend(t *testing.T) {
	// Rising 10/hour, current 100: the 1h horizon should land near 110.
	got := TechnicalSource{}.Forecast(hourlyBuckets([]float64{100, 90, 80, 70}))

	if !approxEqual(got.Volumes[H1h], 110) {
		t.Errorf("1h projection = %v, want 110", got.Volumes[H1h])
	}
	if !approxEqual(got.Volumes[H4h], 140) {
		t.Errorf("4h projection = %v, want 140", got.Volumes[H4h])
	}
	if !approxEqual(got.Volumes[H15m], 102.5) {
		t.Errorf("15m projection = %v, want 102.5", got.Volumes[H15m])
	}
	if got.Confidences[H15m] != 0.75 || got.Confidences[H4h] != 0.35 {
		t.Errorf("confidence schedule = %v, want 0.75 short / 0.35 long", got.Confidences)
	}
}

func TestTechnicalSourceFloorsAtZero(t *testing.T) {
	// Steep decline: long horizons would go negative without the floor.
	got := TechnicalSource{}.Forecast(hourlyBuckets([]float64{10, 60, 110, 160}))
	if got.Volumes[H4h] != 0 {
		t.Errorf("4h projection = %v, want floored 0", got.Volumes[H4h])
	}
}

func TestTechnicalSourceEmptyInput(t *testing.T) {
	got := TechnicalSource{}.Forecast(nil)
	if got.HasSignal() {
		t.Error("empty input must produce a zero forecast")
	}
}

func TestPatternSourceUsesStrongestPattern(t *testing.T) {
	detected := []patterns.Pattern{
		{Type: patterns.Consolidation, Strength: 0.3, HistoricalSuccessRate: 0.45},
		{Type: patterns.Breakout, Strength: 0.9, HistoricalSuccessRate: 0.72},
	}
	got := PatternSource{}.Forecast(detected, 1000)

	// Breakout multipliers: 2.5x short term decaying to 0.9x.
	if !approxEqual(got.Volumes[H15m], 2500) {
		t.Errorf("15m = %v, want 2500", got.Volumes[H15m])
	}
	if !approxEqual(got.Volumes[H4h], 900) {
		t.Errorf("4h = %v, want 900", got.Volumes[H4h])
	}
	if !approxEqual(got.Confidences[H15m], 0.72*0.8) {
		t.Errorf("15m confidence = %v, want %v", got.Confidences[H15m], 0.72*0.8)
	}
}

func TestPatternSourceNoPatternFallback(t *testing.T) {
	got := PatternSource{}.Forecast(nil, 1000)
	if !approxEqual(got.Volumes[H15m], 950) {
		t.Errorf("15m fallback = %v, want 950", got.Volumes[H15m])
	}
	if !approxEqual(got.Confidences[H15m], 0.3) || !approxEqual(got.Confidences[H4h], 0.15) {
		t.Errorf("fallback confidences = %v, want 0.3 short / 0.15 long", got.Confidences)
	}
}

func TestPatternSourceUnknownTypeFallsBackToFlat(t *testing.T) {
	detected := []patterns.Pattern{{Type: "mystery", Strength: 0.9, HistoricalSuccessRate: 0.5}}
	got := PatternSource{}.Forecast(detected, 1000)
	for i := 0; i < NumHorizons; i++ {
		if !approxEqual(got.Volumes[i], 1000) {
			t.Errorf("horizon %d = %v, want flat 1000 for unknown type", i, got.Volumes[i])
		}
	}
}

func TestWhaleSourceSumsAlertVolume(t *testing.T) {
	alerts := []whales.Alert{
		{VolumeUSD: 60000, Confidence: 0.6, Urgency: whales.UrgencyMedium},
		{VolumeUSD: 40000, Confidence: 0.8, Urgency: whales.UrgencyLow},
	}
	got := WhaleSource{}.Forecast(alerts)

	// No urgent alert: plain sum across every horizon.
	for i := 0; i < NumHorizons; i++ {
		if !approxEqual(got.Volumes[i], 100000) {
			t.Errorf("horizon %d = %v, want 100000", i, got.Volumes[i])
		}
	}
	// Mean confidence 0.7 scaled 0.9 at 15m.
	if !approxEqual(got.Confidences[H15m], 0.7*0.9) {
		t.Errorf("15m confidence = %v, want %v", got.Confidences[H15m], 0.7*0.9)
	}
}

func TestWhaleSourceUrgencyBoost(t *testing.T) {
	alerts := []whales.Alert{
		{VolumeUSD: 500000, Confidence: 0.9, Urgency: whales.UrgencyImmediate},
		{VolumeUSD: 100000, Confidence: 0.7, Urgency: whales.UrgencyLow},
	}
	got := WhaleSource{}.Forecast(alerts)

	// One immediate alert boosts the whole sum by 1.5x.
	want := (500000.0 + 100000.0) * 1.5
	if !approxEqual(got.Volumes[H15m], want) {
		t.Errorf("15m = %v, want %v", got.Volumes[H15m], want)
	}
}

func TestWhaleSourceThreeAlertsOneImmediate(t *testing.T) {
	alerts := []whales.Alert{
		{VolumeUSD: 100000, Confidence: 0.8, Urgency: whales.UrgencyImmediate},
		{VolumeUSD: 100000, Confidence: 0.8, Urgency: whales.UrgencyLow},
		{VolumeUSD: 100000, Confidence: 0.8, Urgency: whales.UrgencyLow},
	}
	got := WhaleSource{}.Forecast(alerts)

	if !approxEqual(got.Volumes[H15m], 300000*1.5) {
		t.Errorf("15m = %v, want %v", got.Volumes[H15m], 300000*1.5)
	}
	if !approxEqual(got.Confidences[H15m], 0.8*0.9) {
		t.Errorf("15m confidence = %v, want %v", got.Confidences[H15m], 0.8*0.9)
	}
}

func TestWhaleSourceNoAlerts(t *testing.T) {
	got := WhaleSource{}.Forecast(nil)
	if got.HasSignal() {
		t.Error("no alerts must produce a zero forecast")
	}
}

func TestHorizonTable(t *testing.T) {
	if NumHorizons != 4 {
		t.Fatalf("NumHorizons = %d, want 4", NumHorizons)
	}
	wantHours := []float64{0.25, 0.5, 1, 4}
	for i, h := range Horizons {
		if h.Hours != wantHours[i] {
			t.Errorf("horizon %d hours = %v, want %v", i, h.Hours, wantHours[i])
		}
	}
}
