package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ladle/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for a missing file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.API.BaseURL != "https://api.ladle.recipes" {
		t.Fatalf("unexpected default base url %q", cfg.API.BaseURL)
	}
	if cfg.PollInterval() != 2500*time.Millisecond {
		t.Fatalf("unexpected default poll interval %s", cfg.PollInterval())
	}
	if cfg.DebounceWindow() != 500*time.Millisecond {
		t.Fatalf("unexpected default debounce window %s", cfg.DebounceWindow())
	}
	if cfg.Ingest.MaxActiveJobs != 3 {
		t.Fatalf("unexpected default job cap %d", cfg.Ingest.MaxActiveJobs)
	}
	if !cfg.Journal.Enabled {
		t.Fatal("journal should default to enabled")
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "https://staging.ladle.recipes/"
token = "  tkn-123  "
timeout_seconds = 30

[ingest]
poll_interval_ms = 1000
max_active_jobs = 5

[likes]
debounce_ms = 250

[logging]
format = "JSON"
level = "Debug"
`)
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.API.BaseURL != "https://staging.ladle.recipes" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.API.BaseURL)
	}
	if cfg.API.Token != "tkn-123" {
		t.Fatalf("token not trimmed: %q", cfg.API.Token)
	}
	if cfg.APITimeout() != 30*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.APITimeout())
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.PollInterval())
	}
	if cfg.Ingest.MaxActiveJobs != 5 {
		t.Fatalf("unexpected job cap %d", cfg.Ingest.MaxActiveJobs)
	}
	if cfg.DebounceWindow() != 250*time.Millisecond {
		t.Fatalf("unexpected debounce window %s", cfg.DebounceWindow())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging settings not lowercased: %+v", cfg.Logging)
	}
	// Unset sections keep their defaults.
	if cfg.Ingest.MaxPollFailures != 5 {
		t.Fatalf("unexpected poll failure budget %d", cfg.Ingest.MaxPollFailures)
	}
}

func TestLoadRejectsInvalidBaseURL(t *testing.T) {
	path := writeConfig(t, `
[api]
base_url = "ftp://files.example.com"
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "http or https") {
		t.Fatalf("expected scheme error, got %v", err)
	}
}

func TestLoadRejectsUnknownLogFormat(t *testing.T) {
	path := writeConfig(t, `
[logging]
format = "yaml"
`)
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "logging.format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := writeConfig(t, "[api\nbase_url = ")
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestJournalPathExpandsHome(t *testing.T) {
	path := writeConfig(t, `
[journal]
path = "~/journal-test.db"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}
	if want := filepath.Join(home, "journal-test.db"); cfg.Journal.Path != want {
		t.Fatalf("expected %q, got %q", want, cfg.Journal.Path)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config must validate: %v", err)
	}
}
