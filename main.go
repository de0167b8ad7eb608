package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"dex-analytics-bot/config"
	"dex-analytics-bot/internal/api"
	"dex-analytics-bot/internal/auth"
	"dex-analytics-bot/internal/cache"
	"dex-analytics-bot/internal/database"
	"dex-analytics-bot/internal/dex"
	"dex-analytics-bot/internal/events"
	"dex-analytics-bot/internal/logging"
	"dex-analytics-bot/internal/patterns"
	"dex-analytics-bot/internal/predictor"
	"dex-analytics-bot/internal/recommend"
	"dex-analytics-bot/internal/regime"
	"dex-analytics-bot/internal/secrets"
	"dex-analytics-bot/internal/whales"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LoggingConfig)
	logger.Info().Msg("starting dex-analytics-bot")

	// Secrets from Vault override the plain config when enabled.
	vaultClient, err := secrets.NewClient(cfg.VaultConfig, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vault client")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := vaultClient.ApplySecrets(ctx, cfg); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("failed to load secrets from vault")
	}
	cancel()

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	var redisClient *redis.Client
	if cfg.RedisConfig.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		})
	}

	bus := events.NewBus()

	dexClient := dex.NewClient(
		cfg.DexConfig.BaseURL,
		cfg.DexConfig.APIKey,
		time.Duration(cfg.DexConfig.TimeoutSeconds)*time.Second,
	)

	tieredCache := cache.NewTiered(
		database.NewCacheRepository(db),
		cfg.CacheTTL(),
		cfg.CacheConfig.MaxEntries,
		logger,
	)

	patternStore := database.NewPatternRepository(db)
	detector := patterns.NewDetector(patternStore, cfg.PatternMemoryWindow(), logger)
	tracker := whales.NewTracker(redisClient, logger)

	service := predictor.NewService(predictor.Deps{
		History:           dexClient,
		Cache:             tieredCache,
		Detector:          detector,
		Tracker:           tracker,
		Classifier:        regime.NewClassifier(),
		Engine:            recommend.NewEngine(),
		Bus:               bus,
		Logger:            logger,
		WhaleThresholdUSD: cfg.WhaleConfig.VolumeThresholdUSD,
		WhaleLookback:     time.Duration(cfg.WhaleConfig.LookbackHours) * time.Hour,
	})

	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	sweeper := predictor.NewSweeper(tieredCache, patternStore, tracker, bus, logger)
	go sweeper.Start(
		sweepCtx,
		time.Duration(cfg.CacheConfig.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.PatternConfig.ValidationIntervalMinutes)*time.Minute,
	)

	var jwtManager *auth.JWTManager
	if cfg.AuthConfig.Enabled {
		if cfg.AuthConfig.JWTSecret == "" {
			logger.Fatal().Msg("auth enabled but AUTH_JWT_SECRET is not set")
		}
		jwtManager = auth.NewJWTManager(
			cfg.AuthConfig.JWTSecret,
			cfg.AuthConfig.AdminUser,
			cfg.AuthConfig.AdminPasswordHash,
			cfg.AuthConfig.AccessTokenDuration,
		)
	}

	server := api.NewServer(api.ServerConfig{
		Port:            cfg.ServerConfig.Port,
		Host:            cfg.ServerConfig.Host,
		AllowedOrigins:  cfg.ServerConfig.AllowedOrigins,
		ReadTimeout:     time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		ShutdownTimeout: time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second,
	}, service, bus, jwtManager, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("API server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")
	stopSweeps()

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	if redisClient != nil {
		redisClient.Close()
	}
	logger.Info().Msg("stopped")
}
