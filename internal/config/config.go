// Package config loads finsight's runtime configuration from environment
// variables, with a .env file loaded first via godotenv when present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings every finsight component depends on.
type Config struct {
	DataDir          string        // base directory for the sqlite store and cache (always absolute)
	LogLevel         string        // debug, info, warn, error
	DevMode          bool          // enables pretty console logging
	ProviderBaseURL  string        // base URL of the external market-data provider
	ProviderAPIKey   string        // API key for the external market-data provider
	CacheTTL         time.Duration // default TTL for cached snapshots
	ChunkThreshold   int           // bytes above which a cache payload is chunked
	S3Bucket         string        // archive bucket for cold snapshots
	S3Region         string        // AWS region for the archive bucket
	MaintenanceCron  string        // cron expression for the maintenance sweep
	FiveMinHorizon   time.Duration // horizon beyond which five-minute bars are pruned
	RiskFreeRate     float64       // default risk-free rate used by new portfolios
	ReferenceAsset   string        // ticker used as the market-beta/tracking-error benchmark
}

// Load reads configuration from the environment, falling back to defaults.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	var dataDir string
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	} else {
		dataDir = getEnv("FINSIGHT_DATA_DIR", "")
		if dataDir == "" {
			dataDir = "./data"
		}
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data directory: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://query1.finance.example.com"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", ""),
		CacheTTL:        time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
		ChunkThreshold:  getEnvAsInt("CACHE_CHUNK_THRESHOLD_BYTES", 900_000),
		S3Bucket:        getEnv("ARCHIVE_S3_BUCKET", ""),
		S3Region:        getEnv("ARCHIVE_S3_REGION", "us-east-1"),
		MaintenanceCron: getEnv("MAINTENANCE_CRON", "0 3 * * *"),
		FiveMinHorizon:  time.Duration(getEnvAsInt("FIVE_MIN_HORIZON_DAYS", 60)) * 24 * time.Hour,
		RiskFreeRate:    getEnvAsFloat("RISK_FREE_RATE", 0.02),
		ReferenceAsset:  getEnv("REFERENCE_ASSET", "SPY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required fields are sane.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %q", c.LogLevel)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	if c.ChunkThreshold <= 0 {
		return fmt.Errorf("cache chunk threshold must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
