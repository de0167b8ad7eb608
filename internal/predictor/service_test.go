package predictor

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dex-analytics-bot/internal/cache"
	"dex-analytics-bot/internal/dex"
	"dex-analytics-bot/internal/events"
	"dex-analytics-bot/internal/patterns"
	"dex-analytics-bot/internal/recommend"
	"dex-analytics-bot/internal/regime"
	"dex-analytics-bot/internal/whales"
)

// fakeHistory serves canned transactions keyed by the fetch window length.
type fakeHistory struct {
	txs        []dex.TransactionRecord
	err        error
	fetchCount int
}

func (f *fakeHistory) FetchTransactions(ctx context.Context, poolID string, from, to time.Time, limit int) ([]dex.TransactionRecord, error) {
	f.fetchCount++
	if f.err != nil {
		return nil, f.err
	}
	var out []dex.TransactionRecord
	for _, tx := range f.txs {
		if !tx.Timestamp.Before(from) && !tx.Timestamp.After(to) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func newTestService(history dex.HistorySource, now time.Time) *Service {
	logger := zerolog.Nop()
	s := NewService(Deps{
		History:           history,
		Cache:             cache.NewTiered(nil, 5*time.Minute, 100, logger),
		Detector:          patterns.NewDetector(nil, 168*time.Hour, logger),
		Tracker:           whales.NewTracker(nil, logger),
		Classifier:        regime.NewClassifier(),
		Engine:            recommend.NewEngine(),
		Bus:               events.NewBus(),
		Logger:            logger,
		WhaleThresholdUSD: 50000,
		WhaleLookback:     24 * time.Hour,
	})
	s.now = func() time.Time { return now }
	return s
}

func TestPredictVolumeNoTransactions(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s := newTestService(&fakeHistory{}, now)

	got, err := s.PredictVolume(context.Background(), "empty-pool")
	if err != nil {
		t.Fatalf("PredictVolume: %v", err)
	}

	// A pool with zero history is a valid neutral prediction, not an error.
	if got.Trend != recommend.Neutral {
		t.Errorf("trend = %s, want neutral", got.Trend)
	}
	if got.Recommendation.Action != recommend.Wait {
		t.Errorf("action = %s, want wait", got.Recommendation.Action)
	}
	if got.Recommendation.Timing != recommend.EndOfDay {
		t.Errorf("timing = %s, want end_of_day", got.Recommendation.Timing)
	}
	if got.Recommendation.Confidence != 0.1 {
		t.Errorf("confidence = %v, want 0.1", got.Recommendation.Confidence)
	}
	if got.CurrentHourVolume != 0 {
		t.Errorf("current hour volume = %v, want 0", got.CurrentHourVolume)
	}
	if len(got.RiskFactors) == 0 {
		t.Error("neutral prediction must still name the missing-data risk")
	}
}

func TestPredictVolumeCachesResult(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{txs: steadyTransactions(now)}
	s := newTestService(history, now)

	first, err := s.PredictVolume(context.Background(), "pool-a")
	if err != nil {
		t.Fatalf("first PredictVolume: %v", err)
	}
	fetchesAfterFirst := history.fetchCount

	second, err := s.PredictVolume(context.Background(), "pool-a")
	if err != nil {
		t.Fatalf("second PredictVolume: %v", err)
	}

	if history.fetchCount != fetchesAfterFirst {
		t.Errorf("second call hit upstream %d more times, want cache hit", history.fetchCount-fetchesAfterFirst)
	}
	if second.ID != first.ID {
		t.Error("cached prediction should be returned verbatim")
	}
}

func TestPredictVolumePropagatesFetchErrors(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	fetchErr := &dex.APIError{Kind: dex.ErrKindTimeout, Message: "deadline exceeded"}
	s := newTestService(&fakeHistory{err: fetchErr}, now)

	_, err := s.PredictVolume(context.Background(), "pool-a")
	if err == nil {
		t.Fatal("expected upstream failure to propagate")
	}
}

func TestPredictVolumeComputesCurrentHour(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	// Four transactions inside the last hour, one just outside it.
	txs := []dex.TransactionRecord{
		{PoolID: "p", Timestamp: now.Add(-5 * time.Minute), VolumeUSD: 100},
		{PoolID: "p", Timestamp: now.Add(-20 * time.Minute), VolumeUSD: 200},
		{PoolID: "p", Timestamp: now.Add(-40 * time.Minute), VolumeUSD: 300},
		{PoolID: "p", Timestamp: now.Add(-55 * time.Minute), VolumeUSD: 400},
		{PoolID: "p", Timestamp: now.Add(-90 * time.Minute), VolumeUSD: 5000},
	}
	s := newTestService(&fakeHistory{txs: txs}, now)

	got, err := s.PredictVolume(context.Background(), "p")
	if err != nil {
		t.Fatalf("PredictVolume: %v", err)
	}
	if got.CurrentHourVolume != 1000 {
		t.Errorf("current hour volume = %v, want 1000", got.CurrentHourVolume)
	}
}

func TestPredictVolumeFlagsWhaleSignal(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	txs := append(steadyTransactions(now), dex.TransactionRecord{
		PoolID: "p", UserID: "whale", Timestamp: now.Add(-10 * time.Minute), VolumeUSD: 600000,
	})
	s := newTestService(&fakeHistory{txs: txs}, now)

	got, err := s.PredictVolume(context.Background(), "p")
	if err != nil {
		t.Fatalf("PredictVolume: %v", err)
	}
	if !got.Signals.WhaleActivity {
		t.Error("600k swap against a 50k threshold must flag whale activity")
	}
	if !got.Forecast.HasSignal() {
		t.Error("forecast should carry signal when sources contribute")
	}
}

func TestIdentifyPatternsRunsDetection(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	// Rising volume over the last 6 buckets fires accumulation.
	var txs []dex.TransactionRecord
	for i := 0; i < 6; i++ {
		txs = append(txs, dex.TransactionRecord{
			PoolID:    "p",
			Timestamp: now.Add(-time.Duration(i)*15*time.Minute - time.Minute),
			VolumeUSD: float64(600 - i*100),
		})
	}
	s := newTestService(&fakeHistory{txs: txs}, now)

	got, err := s.IdentifyPatterns(context.Background(), "p")
	if err != nil {
		t.Fatalf("IdentifyPatterns: %v", err)
	}
	found := false
	for _, p := range got {
		if p.Type == patterns.Accumulation {
			found = true
		}
	}
	if !found {
		t.Error("rising series should yield an accumulation pattern")
	}
}

func TestRegimeChangeEventPublishedOnLabelMove(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	history := &fakeHistory{}
	logger := zerolog.Nop()
	bus := events.NewBus()
	s := NewService(Deps{
		History:           history,
		Cache:             cache.NewTiered(nil, 5*time.Minute, 100, logger),
		Detector:          patterns.NewDetector(nil, 168*time.Hour, logger),
		Tracker:           whales.NewTracker(nil, logger),
		Classifier:        regime.NewClassifier(),
		Engine:            recommend.NewEngine(),
		Bus:               bus,
		Logger:            logger,
		WhaleThresholdUSD: 50000,
		WhaleLookback:     24 * time.Hour,
	})
	s.now = func() time.Time { return now }

	var changes []events.Event
	bus.Subscribe(events.EventRegimeChanged, func(e events.Event) {
		changes = append(changes, e)
	})

	// Dead pool classifies quiet: first observation publishes once.
	if _, err := s.AnalyzeMarketRegime(context.Background(), "p"); err != nil {
		t.Fatalf("AnalyzeMarketRegime: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("events after first analysis = %d, want 1", len(changes))
	}
	if changes[0].Data["regime"] != string(regime.Quiet) {
		t.Errorf("regime = %v, want quiet", changes[0].Data["regime"])
	}

	// Same label again: no new event.
	if _, err := s.AnalyzeMarketRegime(context.Background(), "p"); err != nil {
		t.Fatalf("AnalyzeMarketRegime: %v", err)
	}
	if len(changes) != 1 {
		t.Errorf("events after unchanged analysis = %d, want still 1", len(changes))
	}

	// Volume appears, the label moves: one more event carrying the previous label.
	history.txs = steadyTransactions(now)
	if _, err := s.AnalyzeMarketRegime(context.Background(), "p"); err != nil {
		t.Fatalf("AnalyzeMarketRegime: %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("events after regime move = %d, want 2", len(changes))
	}
	if changes[1].Data["previous"] != string(regime.Quiet) {
		t.Errorf("previous = %v, want quiet", changes[1].Data["previous"])
	}
}

func TestAnalyzeMarketRegimeQuietPool(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s := newTestService(&fakeHistory{}, now)

	got, err := s.AnalyzeMarketRegime(context.Background(), "p")
	if err != nil {
		t.Fatalf("AnalyzeMarketRegime: %v", err)
	}
	if got.Regime != regime.Quiet {
		t.Errorf("regime = %s, want quiet for a dead pool", got.Regime)
	}
}

// steadyTransactions spreads moderate volume over the last 48 hours.
func steadyTransactions(now time.Time) []dex.TransactionRecord {
	var txs []dex.TransactionRecord
	for i := 0; i < 48; i++ {
		txs = append(txs, dex.TransactionRecord{
			PoolID:    "p",
			UserID:    "u",
			Timestamp: now.Add(-time.Duration(i)*time.Hour - 30*time.Minute),
			VolumeUSD: 500,
		})
	}
	return txs
}
