// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DataDir      string  `yaml:"data_dir"`       // Base directory for the market data store
	Port         int     `yaml:"port"`           // HTTP listen port
	LogLevel     string  `yaml:"log_level"`      // debug, info, warn, error
	DevMode      bool    `yaml:"dev_mode"`       // Pretty logging, relaxed CORS
	RiskFreeRate float64 `yaml:"risk_free_rate"` // Annual risk-free rate for Sharpe
	LookbackDays int     `yaml:"lookback_days"`  // Price history window in calendar days
	CacheTTLHrs  int     `yaml:"cache_ttl_hours"`
	RefreshCron  string  `yaml:"refresh_cron"` // Universe snapshot refresh schedule
}

// Load reads configuration from environment variables, with an optional YAML
// overlay (ADVISOR_CONFIG or advisor.yaml in the working directory).
// Environment variables win over the YAML file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:      "./data",
		Port:         8080,
		LogLevel:     "info",
		RiskFreeRate: 0.02,
		LookbackDays: 365,
		CacheTTLHrs:  24,
		RefreshCron:  "0 */6 * * *",
	}

	if err := applyYAMLOverlay(cfg); err != nil {
		return nil, err
	}

	cfg.DataDir = getEnv("ADVISOR_DATA_DIR", cfg.DataDir)
	cfg.Port = getEnvAsInt("ADVISOR_PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DevMode = getEnvAsBool("DEV_MODE", cfg.DevMode)
	cfg.RiskFreeRate = getEnvAsFloat("RISK_FREE_RATE", cfg.RiskFreeRate)
	cfg.LookbackDays = getEnvAsInt("LOOKBACK_DAYS", cfg.LookbackDays)

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	cfg.DataDir = absDataDir

	if cfg.LookbackDays < 30 {
		return nil, fmt.Errorf("lookback_days too small: %d (minimum 30)", cfg.LookbackDays)
	}

	return cfg, nil
}

// MarketDBPath returns the path of the SQLite market data store.
func (c *Config) MarketDBPath() string {
	return filepath.Join(c.DataDir, "market.db")
}

// CacheDBPath returns the path of the SQLite estimate cache.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

func applyYAMLOverlay(cfg *Config) error {
	path := getEnv("ADVISOR_CONFIG", "advisor.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // overlay is optional
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
