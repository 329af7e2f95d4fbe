package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":8085" {
		t.Fatalf("unexpected server address %s", cfg.Server.Address)
	}
	if cfg.Engine.CorrelationWindow != 5*time.Minute {
		t.Fatalf("unexpected window %v", cfg.Engine.CorrelationWindow)
	}
	if cfg.Engine.ErrorTTL != time.Hour {
		t.Fatalf("unexpected error TTL %v", cfg.Engine.ErrorTTL)
	}
	if cfg.Engine.CorrelationTTL != 24*time.Hour {
		t.Fatalf("unexpected correlation TTL %v", cfg.Engine.CorrelationTTL)
	}
	if !cfg.Recovery.Enabled {
		t.Fatalf("recovery should default to enabled")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  address: ":9000"
engine:
  correlationWindow: 10m
  maxRecentErrors: 25
recovery:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("file value not applied: %s", cfg.Server.Address)
	}
	if cfg.Engine.CorrelationWindow != 10*time.Minute {
		t.Fatalf("window not applied: %v", cfg.Engine.CorrelationWindow)
	}
	if cfg.Engine.MaxRecentErrors != 25 {
		t.Fatalf("maxRecentErrors not applied: %d", cfg.Engine.MaxRecentErrors)
	}
	if cfg.Recovery.Enabled {
		t.Fatalf("recovery should be disabled by file")
	}
	// Untouched fields keep their defaults.
	if cfg.Store.URL != "redis://localhost:6379/0" {
		t.Fatalf("store default lost: %s", cfg.Store.URL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FAULTLINE_SERVER_ADDRESS", ":7777")
	t.Setenv("FAULTLINE_STORE_URL", "redis://example:6379/1")
	t.Setenv("FAULTLINE_CORRELATION_WINDOW", "2m")
	t.Setenv("FAULTLINE_RECOVERY_ENABLED", "false")
	t.Setenv("FAULTLINE_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != ":7777" {
		t.Fatalf("address override not applied: %s", cfg.Server.Address)
	}
	if cfg.Store.URL != "redis://example:6379/1" {
		t.Fatalf("store override not applied: %s", cfg.Store.URL)
	}
	if cfg.Engine.CorrelationWindow != 2*time.Minute {
		t.Fatalf("window override not applied: %v", cfg.Engine.CorrelationWindow)
	}
	if cfg.Recovery.Enabled {
		t.Fatalf("recovery override not applied")
	}
	if !cfg.Logging.JSON {
		t.Fatalf("log format override not applied")
	}
}
