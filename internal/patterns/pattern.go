package patterns

import (
	"context"
	"time"
)

// PatternType classifies a shape in a volume time-series
type PatternType string

const (
	Accumulation  PatternType = "accumulation"
	Breakout      PatternType = "breakout"
	Reversal      PatternType = "reversal"
	Consolidation PatternType = "consolidation"
)

// Status is the lifecycle state of a detected pattern
type Status string

const (
	StatusDetected    Status = "detected"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusInvalidated Status = "invalidated"
)

// Pattern represents a detected volume pattern
type Pattern struct {
	ID                    string      `json:"id"`
	PoolID                string      `json:"pool_id"`
	Type                  PatternType `json:"type"`
	Status                Status      `json:"status"`
	Strength              float64     `json:"strength"`                // 0.0 to 1.0
	HistoricalSuccessRate float64     `json:"historical_success_rate"` // 0.0 to 1.0
	DurationMinutes       int         `json:"duration_minutes"`        // Window the pattern formed over
	TimeToTargetMinutes   int         `json:"time_to_target_minutes"`  // Expected minutes until target
	VolumeTarget          float64     `json:"volume_target"`
	DetectedAt            time.Time   `json:"detected_at"`
	ExpiresAt             time.Time   `json:"expires_at"`
}

// Active reports whether the pattern still counts toward detection
// short-circuiting at the given instant.
func (p *Pattern) Active(now time.Time) bool {
	if p.Status != StatusDetected && p.Status != StatusConfirmed {
		return false
	}
	return now.Before(p.ExpiresAt)
}

// TargetElapsed reports whether the pattern's predicted window has passed.
func (p *Pattern) TargetElapsed(now time.Time) bool {
	return now.After(p.DetectedAt.Add(time.Duration(p.TimeToTargetMinutes) * time.Minute))
}

// Store persists detected patterns. The core calls it but does not own its
// schema; persistence failures never block detection.
type Store interface {
	// GetActivePatterns returns non-expired patterns with status detected
	// or confirmed for the pool.
	GetActivePatterns(ctx context.Context, poolID string) ([]Pattern, error)
	// StorePattern persists a freshly detected pattern.
	StorePattern(ctx context.Context, poolID string, p Pattern) error
	// CloseElapsed transitions patterns whose predicted window has passed:
	// confirmed ones become completed, detected ones invalidated. Returns
	// the number of patterns transitioned.
	CloseElapsed(ctx context.Context, now time.Time) (int64, error)
}

// Strongest returns the pattern with the highest strength, or nil for an
// empty set. Downstream consumers use it when exactly one pattern is needed.
func Strongest(ps []Pattern) *Pattern {
	var best *Pattern
	for i := range ps {
		if best == nil || ps[i].Strength > best.Strength {
			best = &ps[i]
		}
	}
	return best
}
