package forecast

import (
	"dex-analytics-bot/internal/series"
)

// Confidence schedule for the technical source across the four horizons.
var technicalConfidences = [NumHorizons]float64{0.75, 0.65, 0.55, 0.35}

// technicalTrendBuckets is how many hourly buckets feed the trend fit.
const technicalTrendBuckets = 12

// TechnicalSource projects a linear volume trend forward.
type TechnicalSource struct{}

// Forecast fits a trend over the last 12 hourly buckets (most-recent-first)
// and projects baseVolume + trend*horizon, floored at zero.
func (TechnicalSource) Forecast(buckets []series.Bucket) HorizonForecast {
	var out HorizonForecast
	if len(buckets) == 0 {
		return out
	}

	volumes := series.Volumes(buckets)
	if len(volumes) > technicalTrendBuckets {
		volumes = volumes[:technicalTrendBuckets]
	}

	base := volumes[0]
	trend := series.LinearSlope(volumes) // Per hourly bucket

	for i, h := range Horizons {
		projected := base + trend*h.Hours
		if projected < 0 {
			projected = 0
		}
		out.Volumes[i] = projected
		out.Confidences[i] = technicalConfidences[i]
	}

	return out
}
