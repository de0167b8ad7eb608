package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DexConfig      DexConfig      `json:"dex"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	CacheConfig    CacheConfig    `json:"cache"`
	PatternConfig  PatternConfig  `json:"patterns"`
	WhaleConfig    WhaleConfig    `json:"whales"`
	ServerConfig   ServerConfig   `json:"server"`
	AuthConfig     AuthConfig     `json:"auth"`
	VaultConfig    VaultConfig    `json:"vault"`
	LoggingConfig  LoggingConfig  `json:"logging"`
}

// DexConfig holds the DEX indexer API configuration
type DexConfig struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for the whale alert store
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// CacheConfig holds tiered query-cache settings
type CacheConfig struct {
	TTLMinutes           int `json:"ttl_minutes"`            // Entry time-to-live
	MaxEntries           int `json:"max_entries"`            // Volatile tier capacity
	SweepIntervalMinutes int `json:"sweep_interval_minutes"` // Expiry sweep cadence
}

// PatternConfig holds pattern detection settings
type PatternConfig struct {
	MemoryWindowHours         int `json:"memory_window_hours"`         // How long detected patterns stay active
	ValidationIntervalMinutes int `json:"validation_interval_minutes"` // Lifecycle sweep cadence
}

// WhaleConfig holds whale alert settings
type WhaleConfig struct {
	VolumeThresholdUSD float64 `json:"volume_threshold_usd"` // Min tx volume to flag as whale
	LookbackHours      int     `json:"lookback_hours"`       // Alert window for forecasting
}

type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`
	WriteTimeout    int    `json:"write_timeout"`
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

type AuthConfig struct {
	Enabled             bool          `json:"enabled"`
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	AdminUser           string        `json:"admin_user"`
	AdminPasswordHash   string        `json:"admin_password_hash"` // bcrypt hash
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
}

type LoggingConfig struct {
	Level   string `json:"level"`   // debug, info, warn, error
	Output  string `json:"output"`  // stdout, stderr, or file path
	Console bool   `json:"console"` // Human-readable console output instead of JSON
}

func Load() (*Config, error) {
	// First try to load base config from file
	path := getEnvOrDefault("CONFIG_FILE", "config.json")
	cfg, err := loadFromFile(path)
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// DEX indexer config
	cfg.DexConfig.BaseURL = getEnvOrDefault("DEX_BASE_URL", cfg.DexConfig.BaseURL)
	if cfg.DexConfig.BaseURL == "" {
		cfg.DexConfig.BaseURL = "https://api.dexindexer.io"
	}
	cfg.DexConfig.APIKey = getEnvOrDefault("DEX_API_KEY", cfg.DexConfig.APIKey)
	cfg.DexConfig.TimeoutSeconds = getEnvIntOrDefault("DEX_TIMEOUT_SECONDS", defaultInt(cfg.DexConfig.TimeoutSeconds, 10))

	// Database config
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", defaultStr(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", defaultStr(cfg.DatabaseConfig.User, "postgres"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", defaultStr(cfg.DatabaseConfig.Database, "dex_analytics"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSL_MODE", defaultStr(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "true") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultStr(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))

	// Cache config
	cfg.CacheConfig.TTLMinutes = getEnvIntOrDefault("CACHE_TTL_MINUTES", defaultInt(cfg.CacheConfig.TTLMinutes, 5))
	cfg.CacheConfig.MaxEntries = getEnvIntOrDefault("CACHE_MAX_ENTRIES", defaultInt(cfg.CacheConfig.MaxEntries, 500))
	cfg.CacheConfig.SweepIntervalMinutes = getEnvIntOrDefault("CACHE_SWEEP_INTERVAL_MINUTES", defaultInt(cfg.CacheConfig.SweepIntervalMinutes, 10))

	// Pattern config
	cfg.PatternConfig.MemoryWindowHours = getEnvIntOrDefault("PATTERN_MEMORY_WINDOW_HOURS", defaultInt(cfg.PatternConfig.MemoryWindowHours, 168))
	cfg.PatternConfig.ValidationIntervalMinutes = getEnvIntOrDefault("PATTERN_VALIDATION_INTERVAL_MINUTES", defaultInt(cfg.PatternConfig.ValidationIntervalMinutes, 60))

	// Whale config
	cfg.WhaleConfig.VolumeThresholdUSD = getEnvFloatOrDefault("WHALE_VOLUME_THRESHOLD_USD", defaultFloat(cfg.WhaleConfig.VolumeThresholdUSD, 50000))
	cfg.WhaleConfig.LookbackHours = getEnvIntOrDefault("WHALE_LOOKBACK_HOURS", defaultInt(cfg.WhaleConfig.LookbackHours, 24))

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultStr(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", defaultStr(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", defaultInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", defaultInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Auth config - ALWAYS apply from environment
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "false") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", 15*time.Minute)
	cfg.AuthConfig.AdminUser = getEnvOrDefault("AUTH_ADMIN_USER", defaultStr(cfg.AuthConfig.AdminUser, "admin"))
	cfg.AuthConfig.AdminPasswordHash = getEnvOrDefault("AUTH_ADMIN_PASSWORD_HASH", cfg.AuthConfig.AdminPasswordHash)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", defaultStr(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", defaultStr(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", defaultStr(cfg.VaultConfig.SecretPath, "dex-analytics/credentials"))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultStr(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultStr(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.Console = getEnvOrDefault("LOG_CONSOLE", "false") == "true"
}

// CacheTTL returns the cache TTL as a duration
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheConfig.TTLMinutes) * time.Minute
}

// PatternMemoryWindow returns the pattern memory window as a duration
func (c *Config) PatternMemoryWindow() time.Duration {
	return time.Duration(c.PatternConfig.MemoryWindowHours) * time.Hour
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloatOrDefault(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
