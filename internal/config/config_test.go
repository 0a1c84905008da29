package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWhenPathEmpty(t *testing.T) {
	cfg, errLoad := Load("")
	if errLoad != nil {
		t.Fatalf("load defaults: %v", errLoad)
	}
	if cfg.Server.Listen != ":8080" {
		t.Fatalf("unexpected listen: %s", cfg.Server.Listen)
	}
	if cfg.Checker.TimeoutSeconds != 5 || cfg.Checker.MaxConcurrency != 20 {
		t.Fatalf("unexpected checker defaults: %+v", cfg.Checker)
	}
	if cfg.Policy.DeleteBound != DeleteBoundReject {
		t.Fatalf("expected reject policy default, got %s", cfg.Policy.DeleteBound)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, errLoad := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if errLoad != nil {
		t.Fatalf("load missing file: %v", errLoad)
	}
	if cfg.Server.Listen != ":8080" {
		t.Fatalf("expected defaults, got listen %s", cfg.Server.Listen)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  listen: ":9090"
checker:
  check_url: "http://internal.example.com/ip"
  timeout_seconds: 3
  max_concurrency: 8
policy:
  delete_bound: "unbind"
`
	if errWrite := os.WriteFile(path, []byte(content), 0o644); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load config: %v", errLoad)
	}
	if cfg.Server.Listen != ":9090" {
		t.Fatalf("expected listen override, got %s", cfg.Server.Listen)
	}
	if cfg.Checker.CheckURL != "http://internal.example.com/ip" || cfg.Checker.TimeoutSeconds != 3 {
		t.Fatalf("expected checker overrides, got %+v", cfg.Checker)
	}
	if cfg.Policy.DeleteBound != DeleteBoundUnbind {
		t.Fatalf("expected unbind policy, got %s", cfg.Policy.DeleteBound)
	}
	// Untouched keys keep their defaults.
	if cfg.Database.DSN == "" {
		t.Fatalf("expected database default kept")
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("PROXY_MANAGER_LISTEN", ":7070")
	t.Setenv("PROXY_MANAGER_DSN", "file:env.db")
	t.Setenv("PROXY_MANAGER_CHECK_URL", "http://env.example.com/ip")

	cfg, errLoad := Load("")
	if errLoad != nil {
		t.Fatalf("load config: %v", errLoad)
	}
	if cfg.Server.Listen != ":7070" {
		t.Fatalf("expected env listen, got %s", cfg.Server.Listen)
	}
	if cfg.Database.DSN != "file:env.db" {
		t.Fatalf("expected env dsn, got %s", cfg.Database.DSN)
	}
	if cfg.Checker.CheckURL != "http://env.example.com/ip" {
		t.Fatalf("expected env check url, got %s", cfg.Checker.CheckURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte("checker:\n  timeout_seconds: 0\n"), 0o644); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	if _, errLoad := Load(path); errLoad == nil {
		t.Fatalf("expected validation error for zero timeout")
	}

	if errWrite := os.WriteFile(path, []byte("policy:\n  delete_bound: \"cascade\"\n"), 0o644); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	if _, errLoad := Load(path); errLoad == nil {
		t.Fatalf("expected validation error for unknown policy")
	}
}

func TestJWTExpiry(t *testing.T) {
	if got := (JWTConfig{ExpiryHours: 2}).Expiry(); got != 2*time.Hour {
		t.Fatalf("expected 2h, got %v", got)
	}
	if got := (JWTConfig{}).Expiry(); got != 24*time.Hour {
		t.Fatalf("expected 24h fallback, got %v", got)
	}
}
