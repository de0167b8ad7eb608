// Package regime labels the current market state of a pool from aggregate
// volume statistics. Labels are recomputed fresh on every call; there are no
// transitions to track.
package regime

import (
	"math"
	"time"

	"dex-analytics-bot/internal/series"
)

// Regime is a coarse label for current market behavior
type Regime string

const (
	Trending Regime = "trending"
	Ranging  Regime = "ranging"
	Volatile Regime = "volatile"
	Quiet    Regime = "quiet"
)

// RiskLevel is the fixed risk attached to each regime
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Classification thresholds over the 48-hour hourly window.
const (
	quietAvgVolume   = 10.0
	volatileCV       = 0.8
	trendingStrength = 0.6
)

// MarketRegime is the classification result with the reasoning metadata
// attached. Characteristics and strategies are human-readable only and never
// drive control flow.
type MarketRegime struct {
	PoolID            string    `json:"pool_id"`
	Regime            Regime    `json:"regime"`
	RiskLevel         RiskLevel `json:"risk_level"`
	AvgHourlyVolume   float64   `json:"avg_hourly_volume"`
	VolumeCV          float64   `json:"volume_cv"`
	TrendStrength     float64   `json:"trend_strength"`
	Characteristics   []string  `json:"characteristics"`
	OptimalStrategies []string  `json:"optimal_strategies"`
	AnalyzedAt        time.Time `json:"analyzed_at"`
}

var riskByRegime = map[Regime]RiskLevel{
	Quiet:    RiskHigh,
	Volatile: RiskHigh,
	Trending: RiskLow,
	Ranging:  RiskMedium,
}

var characteristicsByRegime = map[Regime][]string{
	Quiet:    {"low activity", "thin liquidity", "wide effective spreads"},
	Volatile: {"erratic volume swings", "unstable direction", "elevated slippage"},
	Trending: {"sustained directional volume", "consistent participation"},
	Ranging:  {"mean-reverting volume", "stable participation"},
}

var strategiesByRegime = map[Regime][]string{
	Quiet:    {"stay out", "wait for volume confirmation"},
	Volatile: {"reduce position size", "use wide stops"},
	Trending: {"trend following", "pyramid into strength"},
	Ranging:  {"range trading", "fade extremes"},
}

// Classifier labels market regimes from hourly volume series.
type Classifier struct {
	now func() time.Time
}

func NewClassifier() *Classifier {
	return &Classifier{now: time.Now}
}

// Classify labels the pool's current regime from a 48-hour hourly series
// (most-recent-first).
func (c *Classifier) Classify(poolID string, buckets []series.Bucket) *MarketRegime {
	volumes := series.Volumes(buckets)

	avg := series.Mean(volumes)
	cv := series.CoefficientOfVariation(volumes)

	trendStrength := 0.0
	if avg > 0 {
		trendStrength = math.Abs(series.LinearSlope(volumes)) / avg
	}

	var label Regime
	switch {
	case avg < quietAvgVolume:
		label = Quiet
	case cv > volatileCV:
		label = Volatile
	case trendStrength > trendingStrength:
		label = Trending
	default:
		label = Ranging
	}

	return &MarketRegime{
		PoolID:            poolID,
		Regime:            label,
		RiskLevel:         riskByRegime[label],
		AvgHourlyVolume:   avg,
		VolumeCV:          cv,
		TrendStrength:     trendStrength,
		Characteristics:   characteristicsByRegime[label],
		OptimalStrategies: strategiesByRegime[label],
		AnalyzedAt:        c.now(),
	}
}
