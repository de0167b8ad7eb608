// Package predictor orchestrates the analytics pipeline: ingestion caching,
// pattern detection, signal fusion, regime classification, and the final
// trading recommendation.
package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dex-analytics-bot/internal/cache"
	"dex-analytics-bot/internal/dex"
	"dex-analytics-bot/internal/events"
	"dex-analytics-bot/internal/forecast"
	"dex-analytics-bot/internal/patterns"
	"dex-analytics-bot/internal/recommend"
	"dex-analytics-bot/internal/regime"
	"dex-analytics-bot/internal/series"
	"dex-analytics-bot/internal/whales"
)

// Aggregation windows for the two transaction fetches.
const (
	recentWindow  = 6 * time.Hour
	recentBucket  = 15 * time.Minute
	historyWindow = 48 * time.Hour
	historyBucket = time.Hour

	recentFetchLimit  = 1000
	historyFetchLimit = 5000
)

// Deps bundles the service collaborators.
type Deps struct {
	History    dex.HistorySource
	Cache      *cache.Tiered
	Detector   *patterns.Detector
	Tracker    *whales.Tracker
	Classifier *regime.Classifier
	Engine     *recommend.Engine
	Bus        *events.Bus
	Logger     zerolog.Logger

	WhaleThresholdUSD float64
	WhaleLookback     time.Duration
}

// Service exposes the analytics API surface: volume prediction, pattern
// identification, and regime analysis.
type Service struct {
	history    dex.HistorySource
	cache      *cache.Tiered
	detector   *patterns.Detector
	tracker    *whales.Tracker
	classifier *regime.Classifier
	engine     *recommend.Engine
	bus        *events.Bus
	logger     zerolog.Logger

	whaleThreshold float64
	whaleLookback  time.Duration
	now            func() time.Time

	regimeMu   sync.Mutex
	lastRegime map[string]regime.Regime
}

func NewService(deps Deps) *Service {
	lookback := deps.WhaleLookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Service{
		history:        deps.History,
		cache:          deps.Cache,
		detector:       deps.Detector,
		tracker:        deps.Tracker,
		classifier:     deps.Classifier,
		engine:         deps.Engine,
		bus:            deps.Bus,
		logger:         deps.Logger.With().Str("component", "predictor").Logger(),
		whaleThreshold: deps.WhaleThresholdUSD,
		whaleLookback:  lookback,
		now:            time.Now,
		lastRegime:     make(map[string]regime.Regime),
	}
}

// PredictVolume produces a multi-horizon volume forecast and trading
// recommendation for the pool. Results are cached under a deterministic key;
// upstream fetch failures abort the request with a typed error.
func (s *Service) PredictVolume(ctx context.Context, poolID string) (*VolumePrediction, error) {
	key := cache.Key(poolID, map[string]string{
		"op":      "predict_volume",
		"recent":  recentWindow.String(),
		"history": historyWindow.String(),
	})

	if entry := s.cache.Get(ctx, key); entry != nil {
		var cached VolumePrediction
		if err := json.Unmarshal(entry.Payload, &cached); err == nil {
			return &cached, nil
		}
		s.logger.Warn().Str("pool", poolID).Msg("discarding undecodable cached prediction")
	}

	started := s.now()
	now := started

	// The two transaction fetches and the alert lookup run concurrently.
	// Neither cancels the others; the alert lookup degrades to an empty
	// set on failure while a transaction fetch failure aborts the request.
	var (
		wg        sync.WaitGroup
		recentTxs []dex.TransactionRecord
		histTxs   []dex.TransactionRecord
		alerts    []whales.Alert
		recentErr error
		histErr   error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		recentTxs, recentErr = s.history.FetchTransactions(ctx, poolID, now.Add(-recentWindow), now, recentFetchLimit)
	}()
	go func() {
		defer wg.Done()
		histTxs, histErr = s.history.FetchTransactions(ctx, poolID, now.Add(-historyWindow), now, historyFetchLimit)
	}()
	go func() {
		defer wg.Done()
		got, err := s.tracker.GetRecentAlerts(ctx, poolID, s.whaleLookback)
		if err != nil {
			s.logger.Warn().Err(err).Str("pool", poolID).Msg("whale alert lookup failed, source degraded to zero")
			return
		}
		alerts = got
	}()
	wg.Wait()

	if recentErr != nil {
		return nil, fmt.Errorf("fetching recent transactions for %s: %w", poolID, recentErr)
	}
	if histErr != nil {
		return nil, fmt.Errorf("fetching transaction history for %s: %w", poolID, histErr)
	}

	if len(recentTxs) == 0 && len(histTxs) == 0 {
		prediction := s.minimalPrediction(poolID, now)
		s.cachePrediction(ctx, key, poolID, prediction, started, 0)
		return prediction, nil
	}

	alerts = s.mergeNewAlerts(ctx, poolID, recentTxs, alerts)

	recentBuckets := series.FromTransactions(recentTxs, recentBucket, now, recentWindow)
	histBuckets := series.FromTransactions(histTxs, historyBucket, now, historyWindow)

	currentHour := 0.0
	for _, b := range recentBuckets[:4] {
		currentHour += b.Volume
	}

	detected := s.detector.DetectActive(ctx, poolID, recentBuckets, recentBucket)
	for _, p := range detected {
		s.publish(events.EventPatternDetected, map[string]interface{}{
			"pool":     poolID,
			"type":     string(p.Type),
			"strength": p.Strength,
		})
	}

	technical := forecast.TechnicalSource{}.Forecast(histBuckets)
	patternF := forecast.PatternSource{}.Forecast(detected, currentHour)
	whaleF := forecast.WhaleSource{}.Forecast(alerts)
	fused := forecast.Fuse(technical, patternF, whaleF)

	marketRegime := s.classifier.Classify(poolID, histBuckets)
	s.noteRegime(poolID, marketRegime)

	histVolumes := series.Volumes(histBuckets)
	baseline := series.Mean(histVolumes)
	trend := s.engine.Trend(fused.Volumes[forecast.H1h], currentHour, baseline, len(alerts) > 0)

	signals := s.deriveSignals(detected, alerts, histVolumes, baseline)
	risks := s.deriveRiskFactors(marketRegime, len(recentTxs), fused)
	recommendation := s.engine.Recommend(trend, signals.Count(), len(risks))

	prediction := &VolumePrediction{
		ID:                uuid.NewString(),
		PoolID:            poolID,
		CurrentHourVolume: currentHour,
		Forecast:          fused.HorizonForecast,
		Trend:             trend,
		Signals:           signals,
		Reasoning:         s.reasoning(marketRegime, detected, trend, signals),
		RiskFactors:       risks,
		Recommendation:    recommendation,
		GeneratedAt:       now,
	}

	s.cachePrediction(ctx, key, poolID, prediction, started, len(recentTxs)+len(histTxs))
	s.publish(events.EventPredictionReady, map[string]interface{}{
		"pool":   poolID,
		"trend":  string(trend),
		"action": string(recommendation.Action),
	})

	return prediction, nil
}

// IdentifyPatterns returns the active pattern set for the pool, detecting
// fresh ones when none are stored.
func (s *Service) IdentifyPatterns(ctx context.Context, poolID string) ([]patterns.Pattern, error) {
	now := s.now()
	txs, err := s.history.FetchTransactions(ctx, poolID, now.Add(-recentWindow), now, recentFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions for %s: %w", poolID, err)
	}

	buckets := series.FromTransactions(txs, recentBucket, now, recentWindow)
	return s.detector.DetectActive(ctx, poolID, buckets, recentBucket), nil
}

// AnalyzeMarketRegime classifies the pool's current regime from 48 hours of
// history.
func (s *Service) AnalyzeMarketRegime(ctx context.Context, poolID string) (*regime.MarketRegime, error) {
	now := s.now()
	txs, err := s.history.FetchTransactions(ctx, poolID, now.Add(-historyWindow), now, historyFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching transaction history for %s: %w", poolID, err)
	}

	buckets := series.FromTransactions(txs, historyBucket, now, historyWindow)
	mr := s.classifier.Classify(poolID, buckets)
	s.noteRegime(poolID, mr)
	return mr, nil
}

// noteRegime remembers the last regime label per pool and publishes a
// REGIME_CHANGED event whenever the label moves.
func (s *Service) noteRegime(poolID string, mr *regime.MarketRegime) {
	s.regimeMu.Lock()
	previous, known := s.lastRegime[poolID]
	s.lastRegime[poolID] = mr.Regime
	s.regimeMu.Unlock()

	if known && previous == mr.Regime {
		return
	}
	s.publish(events.EventRegimeChanged, map[string]interface{}{
		"pool":     poolID,
		"regime":   string(mr.Regime),
		"previous": string(previous),
		"risk":     string(mr.RiskLevel),
	})
}

// mergeNewAlerts flags whale-sized transactions from the fresh fetch,
// records them, and merges them with the already-known alerts.
func (s *Service) mergeNewAlerts(ctx context.Context, poolID string, txs []dex.TransactionRecord, known []whales.Alert) []whales.Alert {
	fresh := whales.FromTransactions(txs, s.whaleThreshold)
	if len(fresh) == 0 {
		return known
	}

	seen := make(map[string]bool, len(known))
	for _, a := range known {
		seen[a.ID] = true
	}

	merged := known
	for _, a := range fresh {
		s.tracker.RecordAlert(ctx, a)
		if seen[a.ID] {
			continue
		}
		merged = append(merged, a)
		s.publish(events.EventWhaleAlert, map[string]interface{}{
			"pool":    poolID,
			"volume":  a.VolumeUSD,
			"urgency": string(a.Urgency),
		})
	}
	return merged
}

func (s *Service) deriveSignals(detected []patterns.Pattern, alerts []whales.Alert, histVolumes []float64, baseline float64) SignalSet {
	signals := SignalSet{
		WhaleActivity:      len(alerts) > 0,
		PatternRecognition: len(detected) > 0,
	}

	trendVolumes := histVolumes
	if len(trendVolumes) > 12 {
		trendVolumes = trendVolumes[:12]
	}
	if baseline > 0 {
		slope := series.LinearSlope(trendVolumes)
		signals.TimeBasedTrends = math.Abs(slope)/baseline > 0.05
	}

	for _, p := range detected {
		if p.Type == patterns.Accumulation {
			signals.VolumeAccumulation = true
			break
		}
	}

	return signals
}

func (s *Service) deriveRiskFactors(mr *regime.MarketRegime, recentTxCount int, fused forecast.Fused) []string {
	var risks []string
	if mr.RiskLevel == regime.RiskHigh {
		risks = append(risks, fmt.Sprintf("%s market regime carries high risk", mr.Regime))
	}
	if mr.VolumeCV > 0.8 {
		risks = append(risks, "volume is highly variable")
	}
	if recentTxCount < 10 {
		risks = append(risks, "sparse recent transaction history")
	}
	if fused.Confidences[forecast.H1h] < 0.3 {
		risks = append(risks, "low forecast confidence at the 1h horizon")
	}
	return risks
}

func (s *Service) reasoning(mr *regime.MarketRegime, detected []patterns.Pattern, trend recommend.TrendLabel, signals SignalSet) string {
	parts := []string{
		fmt.Sprintf("market regime is %s (%s risk)", mr.Regime, mr.RiskLevel),
	}
	if strongest := patterns.Strongest(detected); strongest != nil {
		parts = append(parts, fmt.Sprintf("strongest pattern is %s at strength %.2f", strongest.Type, strongest.Strength))
	} else {
		parts = append(parts, "no volume patterns detected")
	}
	parts = append(parts, fmt.Sprintf("fused trend is %s with %d of 4 signals active", trend, signals.Count()))
	return strings.Join(parts, "; ")
}

// minimalPrediction is the explicit neutral result for a pool with no
// transaction history. Insufficient data is not an error.
func (s *Service) minimalPrediction(poolID string, now time.Time) *VolumePrediction {
	return &VolumePrediction{
		ID:          uuid.NewString(),
		PoolID:      poolID,
		Trend:       recommend.Neutral,
		Reasoning:   fmt.Sprintf("insufficient transaction data for pool %s; returning neutral forecast", poolID),
		RiskFactors: []string{"no transaction history available"},
		Recommendation: recommend.Recommendation{
			Action:       recommend.Wait,
			Timing:       recommend.EndOfDay,
			Confidence:   0.1,
			PositionSize: recommend.SizeSmall,
		},
		GeneratedAt: now,
	}
}

func (s *Service) cachePrediction(ctx context.Context, key, poolID string, prediction *VolumePrediction, started time.Time, txCount int) {
	payload, err := json.Marshal(prediction)
	if err != nil {
		s.logger.Error().Err(err).Str("pool", poolID).Msg("prediction not cacheable")
		return
	}

	s.cache.Put(ctx, key, payload, cache.Meta{
		PoolID:         poolID,
		Params:         cache.CanonicalParams(map[string]string{"op": "predict_volume", "recent": recentWindow.String(), "history": historyWindow.String()}),
		TotalCount:     txCount,
		ReturnedCount:  txCount,
		Complete:       txCount > 0,
		ResponseTimeMs: s.now().Sub(started).Milliseconds(),
	}, 0)
}

func (s *Service) publish(eventType events.EventType, data map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, Data: data})
}
