// Package config provides configuration for the partitioner demo host.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the settings for the demo host binary that loads the
// partitioner extension into a database/sql connection and drives the
// end-to-end scenario against it.
type Config struct {
	// DBPath is the SQLite database file the extension is loaded into.
	// ":memory:" is valid and is the default.
	DBPath string `json:"db_path" yaml:"db_path"`

	// TableName is the base name used for the virtual table and its shadow
	// tables (root/lookup/template) in the demo scenario.
	TableName string `json:"table_name" yaml:"table_name"`

	// Interval is the partitioning interval passed to
	// CREATE VIRTUAL TABLE ... USING partitioner(..., interval).
	Interval string `json:"interval" yaml:"interval"`

	// Verbose enables per-statement logging of the demo scenario.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		DBPath:    ":memory:",
		TableName: "events",
		Interval:  "1 hour",
		Verbose:   true,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.TableName == "" {
		return fmt.Errorf("table_name is required")
	}
	if c.Interval == "" {
		return fmt.Errorf("interval is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file, starting from
// DefaultConfig so unset fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yamlUnmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overlays PARTITIONER_-prefixed environment variables onto cfg.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("PARTITIONER_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("PARTITIONER_TABLE_NAME"); v != "" {
		cfg.TableName = v
	}
	if v := os.Getenv("PARTITIONER_INTERVAL"); v != "" {
		cfg.Interval = v
	}
	if v := os.Getenv("PARTITIONER_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1"
	}
}
