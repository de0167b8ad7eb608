// Package database provides the PostgreSQL-backed durable stores: the
// durable cache tier and the pattern store.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log := logger.With().Str("component", "database").Logger()
	log.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: log}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running database migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS volume_cache_entries (
			key VARCHAR(64) PRIMARY KEY,
			pool_id VARCHAR(128) NOT NULL,
			params TEXT NOT NULL DEFAULT '',
			payload BYTEA NOT NULL,
			total_count INTEGER NOT NULL DEFAULT 0,
			returned_count INTEGER NOT NULL DEFAULT 0,
			complete BOOLEAN NOT NULL DEFAULT TRUE,
			response_time_ms BIGINT NOT NULL DEFAULT 0,
			hits BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			last_accessed_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_entries_pool ON volume_cache_entries(pool_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_entries_expires ON volume_cache_entries(expires_at)`,

		`CREATE TABLE IF NOT EXISTS volume_patterns (
			id VARCHAR(36) PRIMARY KEY,
			pool_id VARCHAR(128) NOT NULL,
			pattern_type VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'detected',
			strength DECIMAL(5, 4) NOT NULL,
			success_rate DECIMAL(5, 4) NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 0,
			time_to_target_minutes INTEGER NOT NULL DEFAULT 0,
			volume_target DECIMAL(24, 6) NOT NULL DEFAULT 0,
			detected_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_pool_status ON volume_patterns(pool_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_expires ON volume_patterns(expires_at)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info().Msg("database migrations complete")
	return nil
}
