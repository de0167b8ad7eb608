package forecast

import (
	"dex-analytics-bot/internal/whales"
)

// Horizon scaling applied to the mean alert confidence.
var whaleConfidenceScale = [NumHorizons]float64{0.9, 0.8, 0.7, 0.5}

// urgencyMultiplier boosts the projection when any alert is flagged
// immediate or high urgency.
const urgencyMultiplier = 1.5

// WhaleSource forecasts from recent whale alerts for the pool.
type WhaleSource struct{}

// Forecast sums alert volume within the lookback window, applies the urgency
// multiplier when warranted, and scales the mean alert confidence per
// horizon. No alerts means a zero forecast.
func (WhaleSource) Forecast(alerts []whales.Alert) HorizonForecast {
	var out HorizonForecast
	if len(alerts) == 0 {
		return out
	}

	total := 0.0
	confidenceSum := 0.0
	urgent := false
	for _, a := range alerts {
		total += a.VolumeUSD
		confidenceSum += a.Confidence
		if a.Urgency == whales.UrgencyImmediate || a.Urgency == whales.UrgencyHigh {
			urgent = true
		}
	}

	if urgent {
		total *= urgencyMultiplier
	}
	meanConfidence := confidenceSum / float64(len(alerts))

	for i := 0; i < NumHorizons; i++ {
		out.Volumes[i] = total
		out.Confidences[i] = meanConfidence * whaleConfidenceScale[i]
	}

	return out
}
