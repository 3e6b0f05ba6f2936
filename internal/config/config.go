// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir         string // Directory holding ledger.db (always absolute)
	Port            int
	LogLevel        string
	DevMode         bool
	DefaultCurrency string // Default currency for auto-created profiles

	Rates     RatesConfig
	Schedules ScheduleConfig
	Backup    BackupConfig
}

// RatesConfig configures the exchange rate provider and the in-process rate cache
type RatesConfig struct {
	ProviderURL  string
	CacheTTL     time.Duration // Freshness window for a cached rate table
	FetchTimeout time.Duration // Upper bound for a single provider fetch
	CacheSlots   int           // Number of per-base tables kept (1 = single slot)
}

// ScheduleConfig holds cron specs for maintenance jobs. An empty spec disables the job.
type ScheduleConfig struct {
	Reconvert  string
	Checkpoint string
	Backup     string
}

// BackupConfig describes the S3-compatible backup target
type BackupConfig struct {
	Bucket          string
	Endpoint        string // Optional custom endpoint (R2, MinIO)
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
}

// Enabled reports whether enough is configured to upload backups
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("COINMIND_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("COINMIND_PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),
		Rates: RatesConfig{
			ProviderURL:  getEnv("RATE_PROVIDER_URL", "https://api.exchangerate-api.com/v4/latest"),
			CacheTTL:     getEnvAsDuration("RATE_CACHE_TTL", time.Hour),
			FetchTimeout: getEnvAsDuration("RATE_FETCH_TIMEOUT", 8*time.Second),
			CacheSlots:   getEnvAsInt("RATE_CACHE_SLOTS", 1),
		},
		Schedules: ScheduleConfig{
			Reconvert:  getEnv("RECONVERT_SCHEDULE", ""),
			Checkpoint: getEnv("CHECKPOINT_SCHEDULE", "@hourly"),
			Backup:     getEnv("BACKUP_SCHEDULE", ""),
		},
		Backup: BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration values are usable
func (c *Config) Validate() error {
	code, err := utils.NormalizeCurrencyCode(c.DefaultCurrency)
	if err != nil {
		return fmt.Errorf("invalid DEFAULT_CURRENCY: %w", err)
	}
	c.DefaultCurrency = code

	if c.Rates.CacheTTL <= 0 {
		return fmt.Errorf("RATE_CACHE_TTL must be positive, got %s", c.Rates.CacheTTL)
	}
	if c.Rates.FetchTimeout <= 0 {
		return fmt.Errorf("RATE_FETCH_TIMEOUT must be positive, got %s", c.Rates.FetchTimeout)
	}
	if c.Rates.CacheSlots < 1 {
		return fmt.Errorf("RATE_CACHE_SLOTS must be at least 1, got %d", c.Rates.CacheSlots)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("COINMIND_PORT out of range: %d", c.Port)
	}

	return nil
}

// LedgerPath returns the path of the ledger database file
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// SetDataDir points the configuration at dir, creating it if needed
func (c *Config) SetDataDir(dir string) error {
	absDataDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	c.DataDir = absDataDir
	return nil
}
