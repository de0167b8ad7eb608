// Package forecast produces short-horizon volume forecasts by fusing three
// independent signal sources: technical trend, detected patterns, and whale
// activity.
package forecast

// Horizon is one of the four fixed forecast windows.
type Horizon struct {
	Label string
	Hours float64 // Window length as a fraction of an hour
}

// The four forecast horizons, shortest first.
var Horizons = [4]Horizon{
	{Label: "15m", Hours: 0.25},
	{Label: "30m", Hours: 0.5},
	{Label: "1h", Hours: 1},
	{Label: "4h", Hours: 4},
}

// NumHorizons is the number of fixed horizons.
const NumHorizons = len(Horizons)

// Index positions for readability at call sites.
const (
	H15m = iota
	H30m
	H1h
	H4h
)

// HorizonForecast holds a predicted volume and a confidence per horizon.
// Within a single source, confidence never increases as the horizon
// lengthens.
type HorizonForecast struct {
	Volumes     [NumHorizons]float64 `json:"volumes"`
	Confidences [NumHorizons]float64 `json:"confidences"`
}

// HasSignal reports whether any horizon carries both positive volume and
// positive confidence.
func (f HorizonForecast) HasSignal() bool {
	for i := 0; i < NumHorizons; i++ {
		if f.Volumes[i] > 0 && f.Confidences[i] > 0 {
			return true
		}
	}
	return false
}
