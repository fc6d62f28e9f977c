// Package config provides configuration management for the application.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"streamscout/internal/constants"
)

const (
	// Default configuration file name
	defaultConfigFile = "config.json"
	// Default data directory
	defaultDataDir = "."
)

// ProviderConfig describes one upstream stream provider.
type ProviderConfig struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	BaseURL      string   `json:"baseUrl"`
	ManifestURL  string   `json:"manifestUrl,omitempty"`
	Class        string   `json:"class,omitempty"` // "main" (default) or "best-effort"
	Active       *bool    `json:"active,omitempty"`
	Priority     int      `json:"priority,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	QualityBonus float64  `json:"qualityBonus,omitempty"`
}

// IsActive reports whether the provider is enabled; providers are
// active unless explicitly disabled.
func (p *ProviderConfig) IsActive() bool {
	return p.Active == nil || *p.Active
}

// Config holds the application configuration.
// It supports loading from environment variables and a JSON file.
type Config struct {
	Port       string `json:"PORT"`
	TMDBAPIKey string `json:"TMDB_API_KEY"`

	// Storage settings
	DataDir         string `json:"DATA_DIR"`
	ReliabilityPath string `json:"RELIABILITY_PATH"`
	LocalIndexPath  string `json:"LOCAL_INDEX_PATH"`

	// Result cache settings
	CacheSize int           `json:"CACHE_SIZE"`
	CacheTTL  time.Duration `json:"CACHE_TTL"`

	// Fan-out timing
	ProviderTimeout time.Duration `json:"PROVIDER_TIMEOUT"`
	GracePeriod     time.Duration `json:"GRACE_PERIOD"`

	// Reliability tracking
	BreakerThreshold   int           `json:"BREAKER_THRESHOLD"`
	BreakerCooldown    time.Duration `json:"BREAKER_COOLDOWN"`
	MinProviderSamples int           `json:"MIN_PROVIDER_SAMPLES"`
	MinSourceSamples   int           `json:"MIN_SOURCE_SAMPLES"`
	MaxTrackedSources  int           `json:"MAX_TRACKED_SOURCES"`

	// Ranking
	InterleaveProviders bool `json:"INTERLEAVE_PROVIDERS"`

	// Upstream providers
	Providers []ProviderConfig `json:"PROVIDERS"`
}

// Load reads configuration from environment variables and an optional
// JSON file. Environment variables take precedence over file values.
// Returns an error if the configuration is invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               constants.DefaultPort,
		DataDir:            defaultDataDir,
		CacheSize:          constants.DefaultCacheSize,
		CacheTTL:           constants.DefaultCacheTTL,
		ProviderTimeout:    constants.DefaultProviderTimeout,
		GracePeriod:        constants.DefaultGracePeriod,
		BreakerThreshold:   constants.DefaultBreakerThreshold,
		BreakerCooldown:    constants.DefaultBreakerCooldown,
		MinProviderSamples: constants.DefaultMinProviderSamples,
		MinSourceSamples:   constants.DefaultMinSourceSamples,
		MaxTrackedSources:  constants.DefaultMaxTrackedSources,
	}

	// File first so the environment can still override its values.
	configFile := getEnvOrDefault("CONFIG_FILE", defaultConfigFile)
	if err := cfg.loadFromFile(configFile); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}
	if tmdbKey := os.Getenv("TMDB_API_KEY"); tmdbKey != "" {
		c.TMDBAPIKey = tmdbKey
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.DataDir = dataDir
	}
	if path := os.Getenv("RELIABILITY_PATH"); path != "" {
		c.ReliabilityPath = path
	}
	if path := os.Getenv("LOCAL_INDEX_PATH"); path != "" {
		c.LocalIndexPath = path
	}
	if v := os.Getenv("CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheSize = n
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CacheTTL = d
		}
	}
	if v := os.Getenv("BREAKER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BreakerThreshold = n
		}
	}
	if v := os.Getenv("BREAKER_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.BreakerCooldown = d
		}
	}
	if v := os.Getenv("MIN_PROVIDER_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MinProviderSamples = n
		}
	}
	if v := os.Getenv("MIN_SOURCE_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MinSourceSamples = n
		}
	}
	if v := os.Getenv("MAX_TRACKED_SOURCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTrackedSources = n
		}
	}
	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ProviderTimeout = d
		}
	}
	if v := os.Getenv("GRACE_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GracePeriod = d
		}
	}
	if v := os.Getenv("INTERLEAVE_PROVIDERS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.InterleaveProviders = b
		}
	}
}

// loadFromFile loads configuration from a JSON file.
func (c *Config) loadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, c)
}

// Validate checks if the configuration is valid.
// Sets default values for missing optional fields.
func (c *Config) Validate() error {
	if c.ReliabilityPath == "" {
		c.ReliabilityPath = c.DataDir + "/reliability.json"
	}
	if c.LocalIndexPath == "" {
		c.LocalIndexPath = c.DataDir + "/index.db"
	}
	if c.BreakerThreshold < 1 {
		return fmt.Errorf("breaker threshold must be at least 1, got %d", c.BreakerThreshold)
	}

	seen := make(map[string]bool, len(c.Providers))
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.ID == "" {
			return fmt.Errorf("provider %d: missing id", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate provider id %q", p.ID)
		}
		seen[p.ID] = true
		if p.BaseURL == "" {
			return fmt.Errorf("provider %s: missing base url", p.ID)
		}
		switch p.Class {
		case "", constants.ClassMain, constants.ClassBestEffort:
		default:
			return fmt.Errorf("provider %s: unknown class %q", p.ID, p.Class)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
