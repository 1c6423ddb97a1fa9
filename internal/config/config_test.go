package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to validate, got %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Venue.Timeout != 15*time.Second {
		t.Errorf("Expected 15s venue timeout, got %v", cfg.Venue.Timeout)
	}
	if cfg.Venue.RatePerSec != 5.0 {
		t.Errorf("Expected rate 5/s, got %v", cfg.Venue.RatePerSec)
	}
	if cfg.Scoring.RelevanceWeight != 0.6 || cfg.Scoring.LiquidityWeight != 0.25 || cfg.Scoring.TimeWeight != 0.15 {
		t.Errorf("Expected default scoring weights 0.6/0.25/0.15, got %+v", cfg.Scoring)
	}
	if cfg.Aggregator.LiquidityFloor != 20000 {
		t.Errorf("Expected liquidity floor 20000, got %v", cfg.Aggregator.LiquidityFloor)
	}
	if cfg.Store.SyncInterval != time.Hour {
		t.Errorf("Expected 1h sync interval, got %v", cfg.Store.SyncInterval)
	}
	if len(cfg.Store.AllowedCategories) == 0 {
		t.Error("Expected default allowed categories")
	}
	if !cfg.LLM.Enabled {
		t.Error("Expected LLM enabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9090"
venue:
  rate_per_sec: 2.5
llm:
  enabled: false
scoring:
  relevance_weight: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Expected config file write, got %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Errorf("Expected file override :9090, got %s", cfg.Server.Addr)
	}
	if cfg.Venue.RatePerSec != 2.5 {
		t.Errorf("Expected rate 2.5, got %v", cfg.Venue.RatePerSec)
	}
	if cfg.LLM.Enabled {
		t.Error("Expected LLM disabled by file")
	}
	if cfg.Scoring.RelevanceWeight != 0.5 {
		t.Errorf("Expected relevance weight 0.5, got %v", cfg.Scoring.RelevanceWeight)
	}
	// Untouched keys keep their defaults.
	if cfg.Venue.Timeout != 15*time.Second {
		t.Errorf("Expected default timeout preserved, got %v", cfg.Venue.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected merged config to validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base URL", func(c *Config) { c.Venue.APIBaseURL = "" }},
		{"tiny timeout", func(c *Config) { c.Venue.Timeout = 100 * time.Millisecond }},
		{"zero rate", func(c *Config) { c.Venue.RatePerSec = 0 }},
		{"negative retries", func(c *Config) { c.Venue.MaxRetries = -1 }},
		{"enabled LLM without model", func(c *Config) { c.LLM.Model = "" }},
		{"zero weights", func(c *Config) {
			c.Scoring.RelevanceWeight = 0
			c.Scoring.LiquidityWeight = 0
			c.Scoring.TimeWeight = 0
		}},
		{"inverted proxy thresholds", func(c *Config) { c.Scoring.PartialMin = 0.9 }},
		{"negative liquidity floor", func(c *Config) { c.Aggregator.LiquidityFloor = -1 }},
		{"zero series cap", func(c *Config) { c.Aggregator.SeriesPerCategory = 0 }},
		{"global cap below per-category", func(c *Config) { c.Aggregator.SeriesGlobalCap = 2; c.Aggregator.SeriesPerCategory = 5 }},
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"tiny sync interval", func(c *Config) { c.Store.SyncInterval = time.Second }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, c := range cases {
		cfg := Default()
		c.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestValidateDisabledLLMSkipsLLMChecks(t *testing.T) {
	cfg := Default()
	cfg.LLM.Enabled = false
	cfg.LLM.Model = ""
	cfg.LLM.Provider = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected disabled LLM to skip model check, got %v", err)
	}
}
