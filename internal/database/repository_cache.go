package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dex-analytics-bot/internal/cache"
)

// CacheRepository is the durable tier of the query cache.
type CacheRepository struct {
	db *DB
}

func NewCacheRepository(db *DB) *CacheRepository {
	return &CacheRepository{db: db}
}

// Get fetches a non-expired entry and bumps its hit counter in the same
// statement. A miss returns (nil, nil).
func (r *CacheRepository) Get(ctx context.Context, key string) (*cache.Entry, error) {
	query := `
		UPDATE volume_cache_entries
		SET hits = hits + 1, last_accessed_at = NOW()
		WHERE key = $1 AND expires_at > NOW()
		RETURNING key, pool_id, params, payload, total_count, returned_count,
			complete, response_time_ms, hits, created_at, updated_at,
			last_accessed_at, expires_at`

	var e cache.Entry
	err := r.db.Pool.QueryRow(ctx, query, key).Scan(
		&e.Key, &e.PoolID, &e.Params, &e.Payload, &e.TotalCount, &e.ReturnedCount,
		&e.Complete, &e.ResponseTimeMs, &e.Hits, &e.CreatedAt, &e.UpdatedAt,
		&e.LastAccessedAt, &e.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	return &e, nil
}

// Put upserts an entry; a rewrite of the same key resets its lifetime.
func (r *CacheRepository) Put(ctx context.Context, e *cache.Entry) error {
	query := `
		INSERT INTO volume_cache_entries (
			key, pool_id, params, payload, total_count, returned_count,
			complete, response_time_ms, hits, created_at, updated_at,
			last_accessed_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			total_count = EXCLUDED.total_count,
			returned_count = EXCLUDED.returned_count,
			complete = EXCLUDED.complete,
			response_time_ms = EXCLUDED.response_time_ms,
			updated_at = EXCLUDED.updated_at,
			last_accessed_at = EXCLUDED.last_accessed_at,
			expires_at = EXCLUDED.expires_at`

	_, err := r.db.Pool.Exec(ctx, query,
		e.Key, e.PoolID, e.Params, e.Payload, e.TotalCount, e.ReturnedCount,
		e.Complete, e.ResponseTimeMs, e.Hits, e.CreatedAt, e.UpdatedAt,
		e.LastAccessedAt, e.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// DeleteExpired removes entries whose expiry passed before the given
// instant.
func (r *CacheRepository) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM volume_cache_entries WHERE expires_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("deleting expired cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
