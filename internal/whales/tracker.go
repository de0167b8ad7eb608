// Package whales tracks oversized swap alerts per pool. Alerts live in a
// Redis sorted set scored by detection time; when Redis is unavailable the
// tracker falls back to an in-memory map so forecasting continues without
// interruption.
package whales

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// alertKeyPrefix is the sorted-set key per pool: whales:alerts:{poolID}
const alertKeyPrefix = "whales:alerts"

// alertRetention bounds how long alerts stay queryable.
const alertRetention = 7 * 24 * time.Hour

// Tracker stores and serves recent whale alerts.
type Tracker struct {
	client         *redis.Client
	fallback       map[string][]Alert // poolID -> alerts, used when Redis is down
	mu             sync.RWMutex
	redisAvailable atomic.Bool
	logger         zerolog.Logger
	now            func() time.Time
}

// NewTracker creates a tracker. client may be nil for memory-only operation.
func NewTracker(client *redis.Client, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		client:   client,
		fallback: make(map[string][]Alert),
		logger:   logger.With().Str("component", "whales").Logger(),
		now:      time.Now,
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			t.logger.Warn().Err(err).Msg("redis unavailable at startup, using in-memory alert store")
			t.redisAvailable.Store(false)
		} else {
			t.logger.Info().Msg("redis alert store connected")
			t.redisAvailable.Store(true)
		}
	}

	return t
}

func (t *Tracker) key(poolID string) string {
	return fmt.Sprintf("%s:%s", alertKeyPrefix, poolID)
}

// RecordAlert stores an alert. Redis failures downgrade to the in-memory
// fallback rather than erroring.
func (t *Tracker) RecordAlert(ctx context.Context, alert Alert) {
	if t.client != nil && t.redisAvailable.Load() {
		data, err := json.Marshal(alert)
		if err == nil {
			err = t.client.ZAdd(ctx, t.key(alert.PoolID), redis.Z{
				Score:  float64(alert.DetectedAt.Unix()),
				Member: data,
			}).Err()
		}
		if err != nil {
			t.logger.Warn().Err(err).Str("pool", alert.PoolID).Msg("redis alert write failed, using fallback store")
			t.redisAvailable.Store(false)
		} else {
			return
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.fallback[alert.PoolID] {
		if existing.ID == alert.ID {
			return
		}
	}
	t.fallback[alert.PoolID] = append(t.fallback[alert.PoolID], alert)
}

// GetRecentAlerts returns alerts for the pool within the lookback window,
// most recent first.
func (t *Tracker) GetRecentAlerts(ctx context.Context, poolID string, window time.Duration) ([]Alert, error) {
	since := t.now().Add(-window)

	if t.client != nil && t.redisAvailable.Load() {
		raw, err := t.client.ZRevRangeByScore(ctx, t.key(poolID), &redis.ZRangeBy{
			Min: fmt.Sprintf("%d", since.Unix()),
			Max: "+inf",
		}).Result()
		if err != nil {
			t.logger.Warn().Err(err).Str("pool", poolID).Msg("redis alert read failed, using fallback store")
			t.redisAvailable.Store(false)
		} else {
			alerts := make([]Alert, 0, len(raw))
			for _, item := range raw {
				var a Alert
				if err := json.Unmarshal([]byte(item), &a); err != nil {
					t.logger.Warn().Err(err).Msg("skipping undecodable alert")
					continue
				}
				alerts = append(alerts, a)
			}
			return alerts, nil
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	var alerts []Alert
	for _, a := range t.fallback[poolID] {
		if a.DetectedAt.After(since) {
			alerts = append(alerts, a)
		}
	}
	return alerts, nil
}

// TrimOld drops alerts older than the retention window from both stores.
func (t *Tracker) TrimOld(ctx context.Context, now time.Time) {
	cutoff := now.Add(-alertRetention)

	if t.client != nil && t.redisAvailable.Load() {
		iter := t.client.Scan(ctx, 0, alertKeyPrefix+":*", 0).Iterator()
		for iter.Next(ctx) {
			if err := t.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", fmt.Sprintf("%d", cutoff.Unix())).Err(); err != nil {
				t.logger.Warn().Err(err).Str("key", iter.Val()).Msg("redis alert trim failed")
			}
		}
		if err := iter.Err(); err != nil {
			t.logger.Warn().Err(err).Msg("redis alert scan failed")
		}
	}

	t.mu.Lock()
	for pool, alerts := range t.fallback {
		kept := alerts[:0]
		for _, a := range alerts {
			if a.DetectedAt.After(cutoff) {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			delete(t.fallback, pool)
		} else {
			t.fallback[pool] = kept
		}
	}
	t.mu.Unlock()
}
