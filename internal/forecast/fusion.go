package forecast

// Fixed fusion weights per source.
const (
	technicalWeight = 0.4
	patternWeight   = 0.35
	whaleWeight     = 0.25
)

// Fused is the combined forecast plus which sources contributed.
type Fused struct {
	HorizonForecast
	TechnicalContributed bool `json:"technical_contributed"`
	PatternContributed   bool `json:"pattern_contributed"`
	WhaleContributed     bool `json:"whale_contributed"`
}

// Fuse combines the three source forecasts horizon by horizon. A source
// contributes only when both its volume and confidence are strictly
// positive; its contribution is volume*weight*confidence and the normalizer
// is the sum of weight*confidence over contributing sources. With no
// contributors a horizon fuses to zero. This keeps a dead source from
// dragging a real signal toward zero and renormalizes weight among whatever
// is informative. Pure function of its inputs.
func Fuse(technical, pattern, whale HorizonForecast) Fused {
	var fused Fused

	for i := 0; i < NumHorizons; i++ {
		weightedVolume := 0.0
		normalizer := 0.0
		confidenceSum := 0.0
		contributors := 0

		add := func(volume, confidence, weight float64) bool {
			if volume <= 0 || confidence <= 0 {
				return false
			}
			weightedVolume += volume * weight * confidence
			normalizer += weight * confidence
			confidenceSum += confidence * weight
			contributors++
			return true
		}

		tech := add(technical.Volumes[i], technical.Confidences[i], technicalWeight)
		pat := add(pattern.Volumes[i], pattern.Confidences[i], patternWeight)
		wh := add(whale.Volumes[i], whale.Confidences[i], whaleWeight)

		fused.TechnicalContributed = fused.TechnicalContributed || tech
		fused.PatternContributed = fused.PatternContributed || pat
		fused.WhaleContributed = fused.WhaleContributed || wh

		if contributors == 0 || normalizer == 0 {
			continue
		}

		fused.Volumes[i] = weightedVolume / normalizer
		fused.Confidences[i] = confidenceSum / totalWeight(tech, pat, wh)
	}

	return fused
}

// totalWeight sums the fixed weights of the contributing sources so fused
// confidence is a weighted mean over contributors only.
func totalWeight(tech, pat, wh bool) float64 {
	total := 0.0
	if tech {
		total += technicalWeight
	}
	if pat {
		total += patternWeight
	}
	if wh {
		total += whaleWeight
	}
	return total
}
