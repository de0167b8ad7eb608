// Package recommend turns a fused forecast, the detected signal set, and the
// market regime into a discrete trading recommendation.
package recommend

// Action is the discrete trading action
type Action string

const (
	EnterLong  Action = "enter_long"
	EnterShort Action = "enter_short"
	Hold       Action = "hold"
	Exit       Action = "exit"
	Wait       Action = "wait"
)

// Timing is how urgently the action should be taken
type Timing string

const (
	Immediate   Timing = "immediate"
	Within15Min Timing = "within_15min"
	Within1Hour Timing = "within_1hour"
	EndOfDay    Timing = "end_of_day"
)

// PositionSize is the suggested sizing bucket
type PositionSize string

const (
	SizeSmall  PositionSize = "small"
	SizeMedium PositionSize = "medium"
	SizeLarge  PositionSize = "large"
)

// TrendLabel summarizes the fused forecast direction
type TrendLabel string

const (
	SpikeExpected   TrendLabel = "spike_expected"
	Bullish         TrendLabel = "bullish"
	DeclineExpected TrendLabel = "decline_expected"
	Bearish         TrendLabel = "bearish"
	Neutral         TrendLabel = "neutral"
)

// Recommendation is the engine's output
type Recommendation struct {
	Action       Action       `json:"action"`
	Timing       Timing       `json:"timing"`
	Confidence   float64      `json:"confidence"` // 0.1 to 0.9
	PositionSize PositionSize `json:"position_size"`
}

// Engine is a deterministic decision table over trend label, signal count,
// and risk-factor count.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Trend derives the trend label from the ratio of the fused next-1-hour
// volume to max(currentVolume, historicalBaseline). A zero denominator is
// neutral.
func (e *Engine) Trend(fusedNextHour, currentVolume, historicalBaseline float64, whalePresent bool) TrendLabel {
	denom := currentVolume
	if historicalBaseline > denom {
		denom = historicalBaseline
	}
	if denom <= 0 {
		return Neutral
	}

	ratio := fusedNextHour / denom
	switch {
	case ratio > 2.0 && whalePresent:
		return SpikeExpected
	case ratio > 1.5:
		return Bullish
	case ratio < 0.5:
		return DeclineExpected
	case ratio < 0.8:
		return Bearish
	default:
		return Neutral
	}
}

// Recommend applies the decision table. Shorts are always sized small;
// risk caps confidence regardless of signal strength.
func (e *Engine) Recommend(trend TrendLabel, signalCount, riskCount int) Recommendation {
	rec := Recommendation{
		Action:       Wait,
		Timing:       EndOfDay,
		PositionSize: SizeSmall,
	}

	switch {
	case trend == SpikeExpected && signalCount >= 3:
		rec.Action = EnterLong
		rec.Timing = Immediate
		rec.PositionSize = SizeLarge
		if riskCount > 1 {
			rec.PositionSize = SizeMedium
		}
	case trend == Bullish && signalCount >= 2:
		rec.Action = EnterLong
		rec.Timing = Within15Min
		rec.PositionSize = SizeMedium
	case trend == DeclineExpected && signalCount >= 2:
		rec.Action = EnterShort
		rec.Timing = Within15Min
		rec.PositionSize = SizeSmall
	case signalCount >= 2 && riskCount <= 2:
		rec.Action = Hold
		rec.Timing = Within1Hour
	}

	rec.Confidence = confidence(signalCount, riskCount)
	return rec
}

func confidence(signalCount, riskCount int) float64 {
	c := 0.2*float64(signalCount) - 0.1*float64(riskCount) + 0.5
	if c < 0.1 {
		c = 0.1
	}
	if c > 0.9 {
		c = 0.9
	}
	// Risk dominates confidence upside.
	if riskCount > 3 && c > 0.5 {
		c = 0.5
	}
	return c
}
