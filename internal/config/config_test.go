package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host, got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default level info, got %q", cfg.Log.Level)
	}
	if cfg.Sessions.TTL != 0 {
		t.Errorf("sessions ttl should stay zero without configuration, got %v", cfg.Sessions.TTL)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
storage:
  redis_url: redis://localhost:6379/0
sessions:
  ttl: 2h
provider:
  timeout: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090 from file, got %d", cfg.Server.Port)
	}
	if cfg.Storage.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("unexpected redis url %q", cfg.Storage.RedisURL)
	}
	if cfg.Sessions.TTL != 2*time.Hour {
		t.Errorf("expected 2h session ttl, got %v", cfg.Sessions.TTL)
	}
	if cfg.Provider.Timeout != 5*time.Second {
		t.Errorf("expected 5s provider timeout, got %v", cfg.Provider.Timeout)
	}
}

func TestLoadMissingFileIsSkipped(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error for malformed yaml")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("GRANTLAB_SERVER__PORT", "7070")
	t.Setenv("GRANTLAB_STORAGE__REDIS_URL", "redis://override:6379")
	t.Setenv("GRANTLAB_PROVIDER__WORKER_CLIENT_ID", "worker-1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("env should override file, got port %d", cfg.Server.Port)
	}
	if cfg.Storage.RedisURL != "redis://override:6379" {
		t.Errorf("unexpected redis url %q", cfg.Storage.RedisURL)
	}
	if cfg.Provider.WorkerClientID != "worker-1" {
		t.Errorf("single underscores must survive inside key names, got %q", cfg.Provider.WorkerClientID)
	}
}

func TestEnvDurations(t *testing.T) {
	t.Setenv("GRANTLAB_JANITOR__SWEEP_INTERVAL", "90s")
	t.Setenv("GRANTLAB_ARTIFACTS__TTL", "30m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Janitor.SweepInterval != 90*time.Second {
		t.Errorf("expected 90s sweep interval, got %v", cfg.Janitor.SweepInterval)
	}
	if cfg.Artifacts.TTL != 30*time.Minute {
		t.Errorf("expected 30m artifact ttl, got %v", cfg.Artifacts.TTL)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for name, want := range cases {
		if got := (Log{Level: name}).SlogLevel(); got != want {
			t.Errorf("level %q: expected %v, got %v", name, want, got)
		}
	}
}
