package predictor

import (
	"time"

	"dex-analytics-bot/internal/forecast"
	"dex-analytics-bot/internal/recommend"
)

// SignalSet records which of the four weak signal sources were present when
// a prediction was made.
type SignalSet struct {
	WhaleActivity      bool `json:"whale_activity"`
	PatternRecognition bool `json:"pattern_recognition"`
	TimeBasedTrends    bool `json:"time_based_trends"`
	VolumeAccumulation bool `json:"volume_accumulation"`
}

// Count returns how many signals are active.
func (s SignalSet) Count() int {
	n := 0
	for _, present := range []bool{s.WhaleActivity, s.PatternRecognition, s.TimeBasedTrends, s.VolumeAccumulation} {
		if present {
			n++
		}
	}
	return n
}

// VolumePrediction is the full prediction result for a pool.
type VolumePrediction struct {
	ID                string                   `json:"id"`
	PoolID            string                   `json:"pool_id"`
	CurrentHourVolume float64                  `json:"current_hour_volume"`
	Forecast          forecast.HorizonForecast `json:"forecast"`
	Trend             recommend.TrendLabel     `json:"trend"`
	Signals           SignalSet                `json:"signals"`
	Reasoning         string                   `json:"reasoning"`
	RiskFactors       []string                 `json:"risk_factors"`
	Recommendation    recommend.Recommendation `json:"recommendation"`
	GeneratedAt       time.Time                `json:"generated_at"`
}
