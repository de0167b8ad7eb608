// Package cache implements the two-tier query cache: a volatile in-process
// tier plus a durable store that survives restarts. The tiers hold
// independent copies; writes attempt both, reads prefer durable and fall
// back to volatile.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one cached query result. Both tiers store entries of this shape.
type Entry struct {
	Key            string    `json:"key"`
	PoolID         string    `json:"pool_id"`
	Params         string    `json:"params"`
	Payload        []byte    `json:"payload"`
	TotalCount     int       `json:"total_count"`
	ReturnedCount  int       `json:"returned_count"`
	Complete       bool      `json:"complete"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	Hits           int64     `json:"hits"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Meta carries the bookkeeping fields recorded alongside a payload.
type Meta struct {
	PoolID         string
	Params         string
	TotalCount     int
	ReturnedCount  int
	Complete       bool
	ResponseTimeMs int64
}

// DurableStore is the persistence half of the tiered cache. Failures are
// advisory: the volatile tier keeps working without it.
type DurableStore interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

// Tiered is the two-tier cache. The volatile tier is an arena-style store:
// a key map plus a creation-order index so expiry and eviction stay testable
// without request handling in the loop.
type Tiered struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	order      []string // Keys in creation order, oldest first
	maxEntries int
	ttl        time.Duration
	durable    DurableStore
	logger     zerolog.Logger
	now        func() time.Time
}

// NewTiered creates a tiered cache. durable may be nil for volatile-only
// operation.
func NewTiered(durable DurableStore, ttl time.Duration, maxEntries int, logger zerolog.Logger) *Tiered {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 500
	}
	return &Tiered{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		durable:    durable,
		logger:     logger.With().Str("component", "cache").Logger(),
		now:        time.Now,
	}
}

// TTL returns the configured entry time-to-live.
func (t *Tiered) TTL() time.Duration {
	return t.ttl
}

// Get returns the cached entry for key, or nil on a miss. The durable tier
// is consulted first; a durable hit is copied forward into the volatile tier
// so subsequent reads within this process stay local. Expired entries are
// never returned.
func (t *Tiered) Get(ctx context.Context, key string) *Entry {
	now := t.now()

	// Durable read happens outside the lock; only the promote mutates
	// shared state.
	if t.durable != nil {
		entry, err := t.durable.Get(ctx, key)
		if err != nil {
			t.logger.Warn().Err(err).Str("key", key).Msg("durable cache read failed, falling back to volatile tier")
		} else if entry != nil && !entry.Expired(now) {
			t.mu.Lock()
			t.promote(entry, now)
			t.mu.Unlock()
			return entry
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok || entry.Expired(now) {
		return nil
	}
	entry.Hits++
	entry.LastAccessedAt = now
	// Callers get a snapshot; the map copy keeps mutating under the lock.
	snapshot := *entry
	return &snapshot
}

// promote copies a durable hit into the volatile tier, preserving the
// original creation time so eviction order stays truthful. The volatile tier
// stores its own copy so the pointer handed back to the caller is never
// mutated by later reads.
func (t *Tiered) promote(entry *Entry, now time.Time) {
	entry.Hits++
	entry.LastAccessedAt = now
	if _, exists := t.entries[entry.Key]; !exists {
		t.order = append(t.order, entry.Key)
	}
	copied := *entry
	t.entries[entry.Key] = &copied
	t.evictOverCap()
}

// Put writes the payload under key with the given TTL. The volatile write
// always succeeds; the durable write is best effort and a failure only logs.
func (t *Tiered) Put(ctx context.Context, key string, payload []byte, meta Meta, ttl time.Duration) {
	if ttl <= 0 {
		ttl = t.ttl
	}
	now := t.now()

	entry := &Entry{
		Key:            key,
		PoolID:         meta.PoolID,
		Params:         meta.Params,
		Payload:        payload,
		TotalCount:     meta.TotalCount,
		ReturnedCount:  meta.ReturnedCount,
		Complete:       meta.Complete,
		ResponseTimeMs: meta.ResponseTimeMs,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(ttl),
	}

	t.mu.Lock()
	if _, exists := t.entries[key]; exists {
		t.removeFromOrder(key)
	}
	t.entries[key] = entry
	t.order = append(t.order, key)
	t.evictOverCap()
	// Snapshot while still holding the lock: a concurrent Get of the same
	// key mutates Hits/LastAccessedAt on the map copy, and the durable tier
	// must not observe that.
	snapshot := *entry
	t.mu.Unlock()

	if t.durable != nil {
		if err := t.durable.Put(ctx, &snapshot); err != nil {
			t.logger.Warn().Err(err).Str("key", key).Msg("durable cache write failed, entry kept in volatile tier only")
		}
	}
}

// SweepExpired removes volatile entries whose age exceeds twice their TTL
// and asks the durable tier to do the same. Returns the number of volatile
// entries removed.
func (t *Tiered) SweepExpired(ctx context.Context, now time.Time) int {
	t.mu.Lock()
	removed := 0
	for key, entry := range t.entries {
		ttl := entry.ExpiresAt.Sub(entry.CreatedAt)
		if now.After(entry.CreatedAt.Add(2 * ttl)) {
			delete(t.entries, key)
			t.removeFromOrder(key)
			removed++
		}
	}
	t.mu.Unlock()

	if t.durable != nil {
		if n, err := t.durable.DeleteExpired(ctx, now); err != nil {
			t.logger.Warn().Err(err).Msg("durable cache sweep failed")
		} else if n > 0 {
			t.logger.Debug().Int64("deleted", n).Msg("durable cache entries swept")
		}
	}

	return removed
}

// Len returns the number of volatile entries, expired or not.
func (t *Tiered) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// evictOverCap drops the oldest entries by creation time until the volatile
// tier is back under its cap. Pure age-based eviction.
func (t *Tiered) evictOverCap() {
	for len(t.entries) > t.maxEntries && len(t.order) > 0 {
		oldest := t.order[0]
		t.order = t.order[1:]
		if _, ok := t.entries[oldest]; ok {
			delete(t.entries, oldest)
		}
	}
}

func (t *Tiered) removeFromOrder(key string) {
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}
