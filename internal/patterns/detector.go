package patterns

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dex-analytics-bot/internal/series"
)

// Fixed historical success rates and target windows per pattern type.
const (
	accumulationSuccessRate  = 0.65
	breakoutSuccessRate      = 0.72
	reversalSuccessRate      = 0.58
	consolidationSuccessRate = 0.45

	accumulationTargetMinutes  = 120
	breakoutTargetMinutes      = 30
	reversalTargetMinutes      = 180
	consolidationTargetMinutes = 240
)

// Detector classifies a volume series into zero or more typed patterns.
// Series are most-recent-first; every detector relies on that ordering.
type Detector struct {
	store        Store
	memoryWindow time.Duration
	logger       zerolog.Logger
	now          func() time.Time
}

// NewDetector creates a pattern detector. store may be nil to skip
// persistence.
func NewDetector(store Store, memoryWindow time.Duration, logger zerolog.Logger) *Detector {
	if memoryWindow <= 0 {
		memoryWindow = 168 * time.Hour
	}
	return &Detector{
		store:        store,
		memoryWindow: memoryWindow,
		logger:       logger.With().Str("component", "patterns").Logger(),
		now:          time.Now,
	}
}

// DetectActive returns the stored active pattern set for the pool when one
// exists, short-circuiting recomputation, otherwise runs detection on the
// series and persists what fires. Detection is therefore idempotent within
// the memory window.
func (d *Detector) DetectActive(ctx context.Context, poolID string, buckets []series.Bucket, bucketSize time.Duration) []Pattern {
	if d.store != nil {
		active, err := d.store.GetActivePatterns(ctx, poolID)
		if err != nil {
			d.logger.Warn().Err(err).Str("pool", poolID).Msg("pattern store read failed, recomputing")
		} else if len(active) > 0 {
			return active
		}
	}

	detected := d.Detect(poolID, buckets, bucketSize)

	// Fire-and-forget persistence: failures are logged and never retried.
	if d.store != nil {
		for _, p := range detected {
			if err := d.store.StorePattern(ctx, poolID, p); err != nil {
				d.logger.Warn().Err(err).Str("pool", poolID).Str("pattern", string(p.Type)).Msg("pattern persistence failed")
			}
		}
	}

	return detected
}

// Detect runs every detector once against the series and returns all
// patterns that fire. Multiple detectors may fire on the same series.
func (d *Detector) Detect(poolID string, buckets []series.Bucket, bucketSize time.Duration) []Pattern {
	volumes := series.Volumes(buckets)

	var patterns []Pattern
	if p := d.detectAccumulation(volumes, bucketSize); p != nil {
		patterns = append(patterns, d.finalize(*p, poolID))
	}
	if p := d.detectBreakout(volumes, bucketSize); p != nil {
		patterns = append(patterns, d.finalize(*p, poolID))
	}
	if p := d.detectReversal(volumes, bucketSize); p != nil {
		patterns = append(patterns, d.finalize(*p, poolID))
	}
	if p := d.detectConsolidation(volumes, bucketSize); p != nil {
		patterns = append(patterns, d.finalize(*p, poolID))
	}

	return patterns
}

func (d *Detector) finalize(p Pattern, poolID string) Pattern {
	now := d.now()
	p.ID = uuid.NewString()
	p.PoolID = poolID
	p.Status = StatusDetected
	p.DetectedAt = now
	p.ExpiresAt = now.Add(d.memoryWindow)
	return p
}

// detectAccumulation fits a linear trend over the most recent 6 buckets and
// fires when volume is rising. Strength scales with the slope relative to
// the window mean: a 10%-per-bucket climb saturates it.
func (d *Detector) detectAccumulation(volumes []float64, bucketSize time.Duration) *Pattern {
	if len(volumes) < 6 {
		return nil
	}
	recent := volumes[:6]

	slope := series.LinearSlope(recent)
	if slope <= 0 {
		return nil
	}

	mean := series.Mean(recent)
	relSlope := slope
	if mean > 0 {
		relSlope = slope / mean
	}
	strength := math.Min(1, relSlope*10)

	return &Pattern{
		Type:                  Accumulation,
		Strength:              strength,
		HistoricalSuccessRate: accumulationSuccessRate,
		DurationMinutes:       int(6 * bucketSize.Minutes()),
		TimeToTargetMinutes:   accumulationTargetMinutes,
		VolumeTarget:          volumes[0] * 1.5,
	}
}

// detectBreakout compares the most recent bucket against the baseline mean
// of buckets 4-12 and fires above a 2x ratio.
func (d *Detector) detectBreakout(volumes []float64, bucketSize time.Duration) *Pattern {
	if len(volumes) < 12 {
		return nil
	}

	baseline := series.Mean(volumes[4:12])
	if baseline <= 0 {
		return nil
	}

	ratio := volumes[0] / baseline
	if ratio <= 2 {
		return nil
	}

	return &Pattern{
		Type:                  Breakout,
		Strength:              math.Min(1, ratio/3),
		HistoricalSuccessRate: breakoutSuccessRate,
		DurationMinutes:       int(4 * bucketSize.Minutes()),
		TimeToTargetMinutes:   breakoutTargetMinutes,
		VolumeTarget:          baseline * 2,
	}
}

// detectReversal compares the mean of the most recent 4 buckets against the
// previous 4 and fires when the relative change exceeds 50%.
func (d *Detector) detectReversal(volumes []float64, bucketSize time.Duration) *Pattern {
	if len(volumes) < 8 {
		return nil
	}

	recentMean := series.Mean(volumes[:4])
	prevMean := series.Mean(volumes[4:8])
	if prevMean <= 0 {
		return nil
	}

	change := math.Abs(recentMean-prevMean) / prevMean
	if change <= 0.5 {
		return nil
	}

	return &Pattern{
		Type:                  Reversal,
		Strength:              math.Min(1, change),
		HistoricalSuccessRate: reversalSuccessRate,
		DurationMinutes:       int(8 * bucketSize.Minutes()),
		TimeToTargetMinutes:   reversalTargetMinutes,
		VolumeTarget:          recentMean,
	}
}

// detectConsolidation fires when the coefficient of variation over the most
// recent 8 buckets is low, meaning volume has gone flat.
func (d *Detector) detectConsolidation(volumes []float64, bucketSize time.Duration) *Pattern {
	if len(volumes) < 8 {
		return nil
	}
	recent := volumes[:8]

	mean := series.Mean(recent)
	if mean <= 0 {
		return nil
	}

	variation := series.CoefficientOfVariation(recent)
	if variation >= 0.3 {
		return nil
	}

	return &Pattern{
		Type:                  Consolidation,
		Strength:              math.Max(0, 1-2*variation),
		HistoricalSuccessRate: consolidationSuccessRate,
		DurationMinutes:       int(8 * bucketSize.Minutes()),
		TimeToTargetMinutes:   consolidationTargetMinutes,
		VolumeTarget:          mean,
	}
}
