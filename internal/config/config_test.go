package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := Load(home)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Session.StatementTimeoutSeconds != 30 {
		t.Errorf("statement timeout = %d, want 30", cfg.Session.StatementTimeoutSeconds)
	}
	if cfg.Size.SoftLimitMB != 50 || cfg.Size.HardLimitMB != 100 {
		t.Errorf("size limits = %d/%d, want 50/100", cfg.Size.SoftLimitMB, cfg.Size.HardLimitMB)
	}
	if cfg.Digest.SampleRows != 1000 {
		t.Errorf("sample rows = %d, want 1000", cfg.Digest.SampleRows)
	}
	if cfg.BlobDir != filepath.Join(home, "blobs") {
		t.Errorf("blob dir = %q", cfg.BlobDir)
	}
	if cfg.StatementTimeout() != 30*time.Second {
		t.Errorf("timeout duration = %v", cfg.StatementTimeout())
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	home := t.TempDir()
	body := `
log_level: debug
session:
  statement_timeout_seconds: 5
size:
  soft_limit_mb: 10
  hard_limit_mb: 20
digest:
  max_tables: 3
`
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(home)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if cfg.Session.StatementTimeoutSeconds != 5 {
		t.Errorf("timeout = %d", cfg.Session.StatementTimeoutSeconds)
	}
	if cfg.Size.SoftLimitMB != 10 || cfg.Size.HardLimitMB != 20 {
		t.Errorf("limits = %d/%d", cfg.Size.SoftLimitMB, cfg.Size.HardLimitMB)
	}
	if cfg.Digest.MaxTables != 3 {
		t.Errorf("max tables = %d", cfg.Digest.MaxTables)
	}
	// Unset values still default.
	if cfg.Digest.SampleRows != 1000 {
		t.Errorf("sample rows = %d, want default 1000", cfg.Digest.SampleRows)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("size: ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(home); err == nil {
		t.Fatal("expected parse error")
	}
}
