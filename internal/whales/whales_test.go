package whales

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dex-analytics-bot/internal/dex"
)

func TestFromTransactionsThreshold(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	txs := []dex.TransactionRecord{
		{PoolID: "p", UserID: "u1", Timestamp: now, VolumeUSD: 49999},  // below
		{PoolID: "p", UserID: "u2", Timestamp: now, VolumeUSD: 50000},  // exactly at threshold
		{PoolID: "p", UserID: "u3", Timestamp: now, VolumeUSD: 120000}, // 2.4x
	}

	alerts := FromTransactions(txs, 50000)
	if len(alerts) != 2 {
		t.Fatalf("alert count = %d, want 2", len(alerts))
	}
	if alerts[0].UserID != "u2" || alerts[1].UserID != "u3" {
		t.Errorf("unexpected alert users: %s, %s", alerts[0].UserID, alerts[1].UserID)
	}
}

func TestFromTransactionsUrgencyTiers(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		volume float64
		want   Urgency
	}{
		{50000, UrgencyLow},        // 1x
		{100000, UrgencyMedium},    // 2x
		{250000, UrgencyHigh},      // 5x
		{500000, UrgencyImmediate}, // 10x
	}

	for _, tt := range tests {
		alerts := FromTransactions([]dex.TransactionRecord{
			{PoolID: "p", UserID: "u", Timestamp: now, VolumeUSD: tt.volume},
		}, 50000)
		if len(alerts) != 1 {
			t.Fatalf("volume %v: alert count = %d, want 1", tt.volume, len(alerts))
		}
		if alerts[0].Urgency != tt.want {
			t.Errorf("volume %v: urgency = %s, want %s", tt.volume, alerts[0].Urgency, tt.want)
		}
	}
}

func TestFromTransactionsConfidenceCapped(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	alerts := FromTransactions([]dex.TransactionRecord{
		{PoolID: "p", UserID: "u", Timestamp: now, VolumeUSD: 5000000}, // 100x
	}, 50000)
	if alerts[0].Confidence != 0.95 {
		t.Errorf("confidence = %v, want capped 0.95", alerts[0].Confidence)
	}

	alerts = FromTransactions([]dex.TransactionRecord{
		{PoolID: "p", UserID: "u", Timestamp: now, VolumeUSD: 100000}, // 2x
	}, 50000)
	if alerts[0].Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", alerts[0].Confidence)
	}
}

func TestFromTransactionsDeterministicIDs(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tx := dex.TransactionRecord{PoolID: "p", UserID: "u", Timestamp: now, VolumeUSD: 100000}

	first := FromTransactions([]dex.TransactionRecord{tx}, 50000)
	second := FromTransactions([]dex.TransactionRecord{tx}, 50000)
	if first[0].ID != second[0].ID {
		t.Error("same transaction must derive the same alert ID")
	}

	other := tx
	other.VolumeUSD = 100001
	third := FromTransactions([]dex.TransactionRecord{other}, 50000)
	if third[0].ID == first[0].ID {
		t.Error("different transactions must derive different alert IDs")
	}
}

func TestFromTransactionsZeroThreshold(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	txs := []dex.TransactionRecord{{PoolID: "p", Timestamp: now, VolumeUSD: 100}}
	if alerts := FromTransactions(txs, 0); alerts != nil {
		t.Error("zero threshold must produce no alerts")
	}
}

func TestTrackerFallbackStore(t *testing.T) {
	// nil redis client: the tracker runs memory-only.
	tr := NewTracker(nil, zerolog.Nop())
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	alert := Alert{ID: "a1", PoolID: "pool-a", VolumeUSD: 100000, DetectedAt: base.Add(-time.Hour)}
	tr.RecordAlert(context.Background(), alert)
	tr.RecordAlert(context.Background(), alert) // duplicate, deduped by ID

	got, err := tr.GetRecentAlerts(context.Background(), "pool-a", 24*time.Hour)
	if err != nil {
		t.Fatalf("GetRecentAlerts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("alert count = %d, want 1 (duplicate deduped)", len(got))
	}
	if got[0].ID != "a1" {
		t.Errorf("alert ID = %s, want a1", got[0].ID)
	}
}

func TestTrackerFallbackWindowFilter(t *testing.T) {
	tr := NewTracker(nil, zerolog.Nop())
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.RecordAlert(context.Background(), Alert{ID: "recent", PoolID: "p", DetectedAt: base.Add(-2 * time.Hour)})
	tr.RecordAlert(context.Background(), Alert{ID: "stale", PoolID: "p", DetectedAt: base.Add(-30 * time.Hour)})

	got, _ := tr.GetRecentAlerts(context.Background(), "p", 24*time.Hour)
	if len(got) != 1 || got[0].ID != "recent" {
		t.Errorf("expected only the recent alert, got %d alerts", len(got))
	}
}

func TestTrackerTrimOldFallback(t *testing.T) {
	tr := NewTracker(nil, zerolog.Nop())
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.RecordAlert(context.Background(), Alert{ID: "keep", PoolID: "p", DetectedAt: base.Add(-24 * time.Hour)})
	tr.RecordAlert(context.Background(), Alert{ID: "drop", PoolID: "p", DetectedAt: base.Add(-8 * 24 * time.Hour)})

	tr.TrimOld(context.Background(), base)

	got, _ := tr.GetRecentAlerts(context.Background(), "p", 30*24*time.Hour)
	if len(got) != 1 || got[0].ID != "keep" {
		t.Errorf("expected retention trim to keep only the fresh alert, got %d", len(got))
	}
}

func TestTrackerIsolatesPools(t *testing.T) {
	tr := NewTracker(nil, zerolog.Nop())
	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return base }

	tr.RecordAlert(context.Background(), Alert{ID: "a", PoolID: "pool-a", DetectedAt: base.Add(-time.Hour)})
	tr.RecordAlert(context.Background(), Alert{ID: "b", PoolID: "pool-b", DetectedAt: base.Add(-time.Hour)})

	got, _ := tr.GetRecentAlerts(context.Background(), "pool-a", 24*time.Hour)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("pool-a alerts = %d, want only its own", len(got))
	}
}
