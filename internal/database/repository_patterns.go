package database

import (
	"context"
	"fmt"
	"time"

	"dex-analytics-bot/internal/patterns"
)

// PatternRepository is the durable pattern store.
type PatternRepository struct {
	db *DB
}

func NewPatternRepository(db *DB) *PatternRepository {
	return &PatternRepository{db: db}
}

// GetActivePatterns returns non-expired patterns with status detected or
// confirmed for the pool, strongest first.
func (r *PatternRepository) GetActivePatterns(ctx context.Context, poolID string) ([]patterns.Pattern, error) {
	query := `
		SELECT id, pool_id, pattern_type, status, strength, success_rate,
			duration_minutes, time_to_target_minutes, volume_target,
			detected_at, expires_at
		FROM volume_patterns
		WHERE pool_id = $1
			AND status IN ('detected', 'confirmed')
			AND expires_at > NOW()
		ORDER BY strength DESC`

	rows, err := r.db.Pool.Query(ctx, query, poolID)
	if err != nil {
		return nil, fmt.Errorf("querying active patterns: %w", err)
	}
	defer rows.Close()

	var result []patterns.Pattern
	for rows.Next() {
		var p patterns.Pattern
		if err := rows.Scan(
			&p.ID, &p.PoolID, &p.Type, &p.Status, &p.Strength,
			&p.HistoricalSuccessRate, &p.DurationMinutes, &p.TimeToTargetMinutes,
			&p.VolumeTarget, &p.DetectedAt, &p.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scanning pattern row: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// StorePattern persists a freshly detected pattern.
func (r *PatternRepository) StorePattern(ctx context.Context, poolID string, p patterns.Pattern) error {
	query := `
		INSERT INTO volume_patterns (
			id, pool_id, pattern_type, status, strength, success_rate,
			duration_minutes, time_to_target_minutes, volume_target,
			detected_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Pool.Exec(ctx, query,
		p.ID, poolID, p.Type, p.Status, p.Strength, p.HistoricalSuccessRate,
		p.DurationMinutes, p.TimeToTargetMinutes, p.VolumeTarget,
		p.DetectedAt, p.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("storing pattern: %w", err)
	}
	return nil
}

// CloseElapsed transitions patterns whose predicted window has passed:
// confirmed patterns complete, detected ones invalidate.
func (r *PatternRepository) CloseElapsed(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE volume_patterns
		SET status = CASE status
			WHEN 'confirmed' THEN 'completed'
			ELSE 'invalidated'
		END
		WHERE status IN ('detected', 'confirmed')
			AND detected_at + (time_to_target_minutes * INTERVAL '1 minute') < $1`

	tag, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("closing elapsed patterns: %w", err)
	}
	return tag.RowsAffected(), nil
}
