// Package config loads the scratch-database subsystem configuration from
// config.yaml. Every tunable carries the documented default; a missing file
// yields a fully defaulted Config.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionConfig controls the guarded SQL session.
type SessionConfig struct {
	// StatementTimeoutSeconds is the per-statement wall-clock budget.
	// The timeout re-arms for every statement, not per connection.
	StatementTimeoutSeconds int `yaml:"statement_timeout_seconds"`
}

// SizeConfig controls the soft and hard size policies for a scratch file.
type SizeConfig struct {
	// SoftLimitMB triggers a shrink warning attached to batch results.
	SoftLimitMB int `yaml:"soft_limit_mb"`
	// HardLimitMB is the persist ceiling: above it the archive is wiped
	// instead of persisted.
	HardLimitMB int `yaml:"hard_limit_mb"`
}

// DigestConfig bounds the schema digestor's output.
type DigestConfig struct {
	MaxTables      int `yaml:"max_tables"`
	MaxColumns     int `yaml:"max_columns"`
	SampleRows     int `yaml:"sample_rows"`
	MaxImplicitFKs int `yaml:"max_implicit_fks"`
}

// OTelConfig mirrors the telemetry provider settings.
type OTelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

type Config struct {
	HomeDir string `yaml:"-"`

	LogLevel string `yaml:"log_level"`

	// BlobDir is the root of the filesystem blob store holding compressed
	// scratch archives. Defaults to <HomeDir>/blobs.
	BlobDir string `yaml:"blob_dir"`

	// RecordsPath is the durable record store's SQLite file.
	// Defaults to <HomeDir>/records.db.
	RecordsPath string `yaml:"records_path"`

	// SchemaSummaryBudgetBytes caps the CREATE-statement summary handed to
	// the prompt renderer.
	SchemaSummaryBudgetBytes int `yaml:"schema_summary_budget_bytes"`

	Session SessionConfig `yaml:"session"`
	Size    SizeConfig    `yaml:"size"`
	Digest  DigestConfig  `yaml:"digest"`
	OTel    OTelConfig    `yaml:"otel"`
}

// Default returns a Config carrying the documented defaults, rooted at homeDir.
func Default(homeDir string) Config {
	return Config{
		HomeDir:                  homeDir,
		LogLevel:                 "info",
		BlobDir:                  "",
		RecordsPath:              "",
		SchemaSummaryBudgetBytes: 30 * 1024,
		Session: SessionConfig{
			StatementTimeoutSeconds: 30,
		},
		Size: SizeConfig{
			SoftLimitMB: 50,
			HardLimitMB: 100,
		},
		Digest: DigestConfig{
			MaxTables:      20,
			MaxColumns:     25,
			SampleRows:     1000,
			MaxImplicitFKs: 20,
		},
		OTel: OTelConfig{
			Enabled:     false,
			Exporter:    "none",
			ServiceName: "scratchdb",
			SampleRate:  1.0,
		},
	}
}

// Load reads config.yaml under homeDir and overlays it on the defaults.
// A missing file is not an error.
func Load(homeDir string) (Config, error) {
	cfg := Default(homeDir)
	path := homeDir + string(os.PathSeparator) + "config.yaml"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.normalized(), nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.HomeDir = homeDir
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if c.BlobDir == "" {
		c.BlobDir = c.HomeDir + string(os.PathSeparator) + "blobs"
	}
	if c.RecordsPath == "" {
		c.RecordsPath = c.HomeDir + string(os.PathSeparator) + "records.db"
	}
	if c.Session.StatementTimeoutSeconds <= 0 {
		c.Session.StatementTimeoutSeconds = 30
	}
	if c.Size.SoftLimitMB <= 0 {
		c.Size.SoftLimitMB = 50
	}
	if c.Size.HardLimitMB <= 0 {
		c.Size.HardLimitMB = 100
	}
	if c.Digest.MaxTables <= 0 {
		c.Digest.MaxTables = 20
	}
	if c.Digest.MaxColumns <= 0 {
		c.Digest.MaxColumns = 25
	}
	if c.Digest.SampleRows <= 0 {
		c.Digest.SampleRows = 1000
	}
	if c.Digest.MaxImplicitFKs <= 0 {
		c.Digest.MaxImplicitFKs = 20
	}
	if c.SchemaSummaryBudgetBytes <= 0 {
		c.SchemaSummaryBudgetBytes = 30 * 1024
	}
	return c
}

// StatementTimeout returns the per-statement budget as a duration.
func (c Config) StatementTimeout() time.Duration {
	return time.Duration(c.Session.StatementTimeoutSeconds) * time.Second
}
