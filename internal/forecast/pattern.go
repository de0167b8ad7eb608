package forecast

import (
	"dex-analytics-bot/internal/patterns"
)

// Horizon scaling applied to a pattern's historical success rate.
var patternConfidenceScale = [NumHorizons]float64{0.8, 0.7, 0.6, 0.4}

// Per-horizon volume multipliers by pattern type. Accumulation ramps up with
// the horizon, breakout spikes short-term then decays, distribution decays
// monotonically, reversal inverts the short term, consolidation stays flat.
// Distribution never comes out of the detector, but a confirmed external
// pattern can carry it.
var patternMultipliers = map[patterns.PatternType][NumHorizons]float64{
	patterns.Accumulation:  {1.2, 1.5, 1.8, 2.2},
	patterns.Breakout:      {2.5, 2.0, 1.4, 0.9},
	"distribution":         {0.8, 0.6, 0.45, 0.3},
	patterns.Reversal:      {0.6, 0.9, 1.3, 1.8},
	patterns.Consolidation: {1.0, 1.0, 1.0, 1.0},
}

// Fallback when no pattern is present: a low-confidence decay of the
// current volume.
var (
	noPatternMultipliers = [NumHorizons]float64{0.95, 0.9, 0.8, 0.7}
	noPatternConfidences = [NumHorizons]float64{0.3, 0.25, 0.2, 0.15}
)

// PatternSource forecasts from the single strongest detected pattern.
type PatternSource struct{}

// Forecast multiplies the current volume by the strongest pattern's
// per-horizon multiplier table. Confidence is the pattern's historical
// success rate scaled down with horizon.
func (PatternSource) Forecast(detected []patterns.Pattern, currentVolume float64) HorizonForecast {
	var out HorizonForecast

	strongest := patterns.Strongest(detected)
	if strongest == nil {
		for i := 0; i < NumHorizons; i++ {
			out.Volumes[i] = currentVolume * noPatternMultipliers[i]
			out.Confidences[i] = noPatternConfidences[i]
		}
		return out
	}

	multipliers, ok := patternMultipliers[strongest.Type]
	if !ok {
		multipliers = patternMultipliers[patterns.Consolidation]
	}

	for i := 0; i < NumHorizons; i++ {
		out.Volumes[i] = currentVolume * multipliers[i]
		out.Confidences[i] = strongest.HistoricalSuccessRate * patternConfidenceScale[i]
	}

	return out
}
