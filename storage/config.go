package storage

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds buffer pool configuration
type Config struct {
	// Buffer pool
	PoolSize       int    `json:"pool_size"`       // Number of resident frames
	ReplacerPolicy string `json:"replacer_policy"` // Eviction policy (lruk, lru)
	ReplacerK      int    `json:"replacer_k"`      // LRU-K history depth

	// Disk
	DataFile    string `json:"data_file"`   // Path of the page file
	Compression string `json:"compression"` // Page compression (none, lz4, snappy)
	UseMmap     bool   `json:"use_mmap"`    // Memory-mapped page file

	// Performance
	PrefetchEnabled bool   `json:"prefetch_enabled"` // Sequential prefetching
	MetricsEnabled  bool   `json:"metrics_enabled"`  // Collect performance metrics
	LogLevel        string `json:"log_level"`        // Log level (debug, info, warn, error)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PoolSize:        100,
		ReplacerPolicy:  "lruk",
		ReplacerK:       2,
		DataFile:        "./flint.db",
		Compression:     "none",
		UseMmap:         false,
		PrefetchEnabled: false,
		MetricsEnabled:  true,
		LogLevel:        "info",
	}
}

// LoadConfigFromFile loads configuration from a JSON file on top of the
// defaults
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}
	if c.ReplacerK <= 0 {
		return fmt.Errorf("replacer_k must be positive, got %d", c.ReplacerK)
	}
	switch c.ReplacerPolicy {
	case "lruk", "lru":
	default:
		return fmt.Errorf("unknown replacer_policy %q", c.ReplacerPolicy)
	}
	switch c.Compression {
	case "none", "lz4", "snappy":
	default:
		return fmt.Errorf("unknown compression %q", c.Compression)
	}
	if c.DataFile == "" {
		return fmt.Errorf("data_file must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// CompressionType returns the configured compression as a codec tag
func (c *Config) CompressionType() CompressionType {
	switch c.Compression {
	case "lz4":
		return CompressionLZ4
	case "snappy":
		return CompressionSnappy
	default:
		return CompressionNone
	}
}
