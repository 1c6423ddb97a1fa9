// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Venue      VenueConfig      `mapstructure:"venue"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the HTTP surface configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// VenueConfig holds the live venue API configuration
type VenueConfig struct {
	APIBaseURL    string        `mapstructure:"api_base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSec    float64       `mapstructure:"rate_per_sec"`
	Burst         int           `mapstructure:"burst"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryBaseWait time.Duration `mapstructure:"retry_base_wait"`
	RetryMaxWait  time.Duration `mapstructure:"retry_max_wait"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// LLMConfig holds the LLM collaborator configuration
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Enabled     bool          `mapstructure:"enabled"`
}

// ScoringConfig carries the empirical ranking constants. The defaults come from
// the original tuning; they are configuration, not invariants.
type ScoringConfig struct {
	RelevanceWeight  float64 `mapstructure:"relevance_weight"`
	LiquidityWeight  float64 `mapstructure:"liquidity_weight"`
	TimeWeight       float64 `mapstructure:"time_weight"`
	TopCategoryBoost float64 `mapstructure:"top_category_boost"`
	StrongMin        float64 `mapstructure:"strong_min"`
	PartialMin       float64 `mapstructure:"partial_min"`
}

// AggregatorConfig holds market aggregation and hygiene settings
type AggregatorConfig struct {
	LiquidityFloor    float64 `mapstructure:"liquidity_floor"`
	SeriesPerCategory int     `mapstructure:"series_per_category"`
	SeriesGlobalCap   int     `mapstructure:"series_global_cap"`
}

// StoreConfig holds the persisted market cache configuration
type StoreConfig struct {
	Path              string        `mapstructure:"path"`
	SyncInterval      time.Duration `mapstructure:"sync_interval"`
	AllowedCategories []string      `mapstructure:"allowed_categories"`
	ExcludedTags      []string      `mapstructure:"excluded_tags"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("HEDGESCOUT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration populated with defaults only, no file required.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HEDGESCOUT")
	v.AutomaticEnv()

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	// Venue defaults
	v.SetDefault("venue.api_base_url", "https://api.elections.kalshi.com/trade-api/v2")
	v.SetDefault("venue.timeout", "15s")
	v.SetDefault("venue.rate_per_sec", 5.0)
	v.SetDefault("venue.burst", 1)
	v.SetDefault("venue.max_retries", 3)
	v.SetDefault("venue.retry_base_wait", "2s")
	v.SetDefault("venue.retry_max_wait", "30s")
	v.SetDefault("venue.cache_ttl", "5m")

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.enabled", true)

	// Scoring defaults
	v.SetDefault("scoring.relevance_weight", 0.6)
	v.SetDefault("scoring.liquidity_weight", 0.25)
	v.SetDefault("scoring.time_weight", 0.15)
	v.SetDefault("scoring.top_category_boost", 0.15)
	v.SetDefault("scoring.strong_min", 0.7)
	v.SetDefault("scoring.partial_min", 0.45)

	// Aggregator defaults
	v.SetDefault("aggregator.liquidity_floor", 20000.0)
	v.SetDefault("aggregator.series_per_category", 5)
	v.SetDefault("aggregator.series_global_cap", 10)

	// Store defaults
	v.SetDefault("store.path", "./data/markets.db")
	v.SetDefault("store.sync_interval", "1h")
	v.SetDefault("store.allowed_categories", []string{
		"Climate and Weather", "Economics", "Financials", "Energy",
		"Transportation", "Science and Technology", "Health", "Entertainment",
	})
	v.SetDefault("store.excluded_tags", []string{"Politics", "Elections"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Venue.APIBaseURL == "" {
		return fmt.Errorf("venue.api_base_url is required")
	}
	if c.Venue.Timeout < time.Second {
		return fmt.Errorf("venue.timeout must be at least 1 second")
	}
	if c.Venue.RatePerSec <= 0 {
		return fmt.Errorf("venue.rate_per_sec must be positive")
	}
	if c.Venue.MaxRetries < 0 {
		return fmt.Errorf("venue.max_retries must not be negative")
	}

	if c.LLM.Enabled {
		if c.LLM.Provider == "" {
			return fmt.Errorf("llm.provider is required when llm is enabled")
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("llm.model is required when llm is enabled")
		}
	}

	wsum := c.Scoring.RelevanceWeight + c.Scoring.LiquidityWeight + c.Scoring.TimeWeight
	if wsum <= 0 {
		return fmt.Errorf("scoring weights must sum to a positive value")
	}
	if c.Scoring.PartialMin > c.Scoring.StrongMin {
		return fmt.Errorf("scoring.partial_min must not exceed scoring.strong_min")
	}

	if c.Aggregator.LiquidityFloor < 0 {
		return fmt.Errorf("aggregator.liquidity_floor must not be negative")
	}
	if c.Aggregator.SeriesPerCategory < 1 {
		return fmt.Errorf("aggregator.series_per_category must be at least 1")
	}
	if c.Aggregator.SeriesGlobalCap < c.Aggregator.SeriesPerCategory {
		return fmt.Errorf("aggregator.series_global_cap must be at least series_per_category")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Store.SyncInterval < time.Minute {
		return fmt.Errorf("store.sync_interval must be at least 1 minute")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
