package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnv_defaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "LOG_FORMAT", "MAX_BODY_BYTES", "RATE_LIMIT_PER_MINUTE", "COMPOSE_WORKERS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	want := Config{
		Port:               DefaultPort,
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
		MaxBodyBytes:       DefaultMaxBodyBytes,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		ComposeWorkers:     DefaultComposeWorkers,
	}
	if cfg != want {
		t.Errorf("FromEnv() = %+v, want %+v", cfg, want)
	}
}

func TestFromEnv_overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_BODY_BYTES", "-5")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("COMPOSE_WORKERS", "not-a-number")

	cfg := FromEnv()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Errorf("negative MaxBodyBytes should fall back to default, got %d", cfg.MaxBodyBytes)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("RateLimitPerMinute = %d, want 0 (disabled)", cfg.RateLimitPerMinute)
	}
	if cfg.ComposeWorkers != DefaultComposeWorkers {
		t.Errorf("invalid COMPOSE_WORKERS should fall back to default, got %d", cfg.ComposeWorkers)
	}
}

func TestLoad_envFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("COMPOSITOR_TEST_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COMPOSITOR_TEST_KEY", "")
	os.Unsetenv("COMPOSITOR_TEST_KEY")

	if err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := GetEnv("COMPOSITOR_TEST_KEY", "fallback"); got != "from-file" {
		t.Errorf("GetEnv after Load = %q", got)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for missing .env file")
	}
}
