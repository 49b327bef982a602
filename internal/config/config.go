// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration. It is built once at startup and
// passed down explicitly; nothing in the core reads the environment directly.
type Config struct {
	DataDir  string // Base directory for all databases, always absolute
	Port     int
	LogLevel string
	DevMode  bool

	// Agent configuration
	StartingCash        float64 // Cash a new portfolio starts with
	ConfidenceThreshold float64 // Minimum confidence to execute a recommendation
	MaxConcurrentRuns   int     // Worker pool size for the daily batch
	DailySchedule       string  // Cron expression for the daily batch

	// Market data
	QuoteBaseURL    string // Base URL of the quote/fundamentals API
	QuoteTimeoutSec int    // Per-request timeout
	CacheTTLMinutes int    // Snapshot cache freshness window

	// Alerts (optional; alerts are disabled when SenderEmail is empty)
	AWSRegion   string
	SenderEmail string

	// Backups (optional; disabled when BackupBucket is empty)
	BackupBucket string
}

// Load reads configuration from environment variables (.env supported).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("COUNCIL_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		StartingCash:        getEnvAsFloat("STARTING_CASH", 100000),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.7),
		MaxConcurrentRuns:   getEnvAsInt("MAX_CONCURRENT_RUNS", 4),
		DailySchedule:       getEnv("DAILY_SCHEDULE", "0 0 14 * * MON-FRI"), // 9 AM EST

		QuoteBaseURL:    getEnv("QUOTE_API_URL", "https://query1.finance.yahoo.com"),
		QuoteTimeoutSec: getEnvAsInt("QUOTE_TIMEOUT_SECONDS", 10),
		CacheTTLMinutes: getEnvAsInt("CACHE_TTL_MINUTES", 15),

		AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		SenderEmail: getEnv("SES_SENDER_EMAIL", ""),

		BackupBucket: getEnv("BACKUP_S3_BUCKET", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants that would otherwise surface as
// confusing behavior deep inside a run.
func (c *Config) Validate() error {
	if c.StartingCash <= 0 {
		return fmt.Errorf("STARTING_CASH must be positive, got %v", c.StartingCash)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.MaxConcurrentRuns < 1 {
		return fmt.Errorf("MAX_CONCURRENT_RUNS must be at least 1, got %d", c.MaxConcurrentRuns)
	}
	return nil
}

// Helper functions
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
