package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir stands in for t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("chdir back: %v", err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "release" || cfg.Port != 8080 {
		t.Fatalf("unexpected defaults: mode=%q port=%d", cfg.Mode, cfg.Port)
	}
	if cfg.ReadLimit != 65536 || cfg.SendBuffer != 64 {
		t.Fatalf("unexpected socket defaults: %+v", cfg)
	}
	if cfg.PingPeriod != 54*time.Second {
		t.Fatalf("unexpected ping period: %v", cfg.PingPeriod)
	}
	if cfg.JoinRateLimit != 10 || cfg.JoinRateInterval != time.Minute {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("CONFIG_ENV", "test")

	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	yaml := []byte("mode: debug\nport: 9000\nping_period: 30s\njoin_rate_limit: 5\n")
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "debug" || cfg.Port != 9000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PingPeriod != 30*time.Second || cfg.JoinRateLimit != 5 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// Unset keys keep their defaults.
	if cfg.SendBuffer != 64 {
		t.Fatalf("default lost on partial file: %+v", cfg)
	}
}
