package predictor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"dex-analytics-bot/internal/cache"
	"dex-analytics-bot/internal/events"
	"dex-analytics-bot/internal/patterns"
	"dex-analytics-bot/internal/whales"
)

// Sweeper runs the two periodic maintenance passes: cache expiry and pattern
// lifecycle validation. It owns no timers; the caller ticks it (main wires
// real tickers, tests pass synthetic times).
type Sweeper struct {
	cache   *cache.Tiered
	store   patterns.Store
	tracker *whales.Tracker
	bus     *events.Bus
	logger  zerolog.Logger
}

func NewSweeper(c *cache.Tiered, store patterns.Store, tracker *whales.Tracker, bus *events.Bus, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		cache:   c,
		store:   store,
		tracker: tracker,
		bus:     bus,
		logger:  logger.With().Str("component", "sweeper").Logger(),
	}
}

// RunCacheSweep removes aged-out cache entries from both tiers.
func (s *Sweeper) RunCacheSweep(ctx context.Context, now time.Time) {
	removed := s.cache.SweepExpired(ctx, now)
	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("volatile cache entries swept")
	}
	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type: events.EventCacheSweep,
			Data: map[string]interface{}{"removed": removed},
		})
	}
}

// RunPatternValidation closes out patterns whose predicted window elapsed
// and trims stale whale alerts. Store failures are logged, not propagated.
func (s *Sweeper) RunPatternValidation(ctx context.Context, now time.Time) {
	if s.store != nil {
		if n, err := s.store.CloseElapsed(ctx, now); err != nil {
			s.logger.Warn().Err(err).Msg("pattern lifecycle sweep failed")
		} else if n > 0 {
			s.logger.Info().Int64("closed", n).Msg("elapsed patterns closed")
		}
	}
	if s.tracker != nil {
		s.tracker.TrimOld(ctx, now)
	}
}

// Start launches the periodic sweeps and blocks until ctx is done.
func (s *Sweeper) Start(ctx context.Context, cacheInterval, validationInterval time.Duration) {
	cacheTicker := time.NewTicker(cacheInterval)
	validationTicker := time.NewTicker(validationInterval)
	defer cacheTicker.Stop()
	defer validationTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-cacheTicker.C:
			s.RunCacheSweep(ctx, now)
		case now := <-validationTicker.C:
			s.RunPatternValidation(ctx, now)
		}
	}
}
