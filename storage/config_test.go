package storage

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig tests that the defaults validate
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
	if cfg.ReplacerPolicy != "lruk" {
		t.Errorf("Expected default policy lruk, got %q", cfg.ReplacerPolicy)
	}
	if cfg.CompressionType() != CompressionNone {
		t.Errorf("Expected default compression none, got %d", cfg.CompressionType())
	}
}

// TestConfigValidation tests rejection of bad values
func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pool size", func(c *Config) { c.PoolSize = 0 }},
		{"negative k", func(c *Config) { c.ReplacerK = -1 }},
		{"unknown policy", func(c *Config) { c.ReplacerPolicy = "clock" }},
		{"unknown compression", func(c *Config) { c.Compression = "zstd" }},
		{"empty data file", func(c *Config) { c.DataFile = "" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

// TestLoadConfigFromFile tests JSON loading over defaults
func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"pool_size": 64, "replacer_policy": "lru", "compression": "lz4"}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile failed: %v", err)
	}
	if cfg.PoolSize != 64 {
		t.Errorf("Expected pool size 64, got %d", cfg.PoolSize)
	}
	if cfg.ReplacerPolicy != "lru" {
		t.Errorf("Expected policy lru, got %q", cfg.ReplacerPolicy)
	}
	if cfg.CompressionType() != CompressionLZ4 {
		t.Errorf("Expected lz4 compression, got %d", cfg.CompressionType())
	}
	// Unset fields keep their defaults
	if cfg.ReplacerK != 2 {
		t.Errorf("Expected default k 2, got %d", cfg.ReplacerK)
	}
}

// TestLoadConfigErrors tests missing and invalid files
func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{"pool_size": -3}`), 0644)
	if _, err := LoadConfigFromFile(path); err == nil {
		t.Error("Invalid configuration should fail validation")
	}

	os.WriteFile(path, []byte(`not json`), 0644)
	if _, err := LoadConfigFromFile(path); err == nil {
		t.Error("Malformed JSON should fail")
	}
}
