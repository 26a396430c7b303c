package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("default port: got %q", cfg.Server.Port)
	}
	if cfg.ETL.DedupDays != 7 {
		t.Errorf("default dedup window: got %d", cfg.ETL.DedupDays)
	}
	if cfg.Alerts.ThresholdPercent != 20 || cfg.Alerts.MinHistory != 7 {
		t.Errorf("default alert settings: %+v", cfg.Alerts)
	}
	if !cfg.RateLimit.Enabled {
		t.Errorf("rate limiting should default on")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("expected defaults, got port %q", cfg.Server.Port)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	content := `
server:
  port: "9090"
etl:
  dedup_days: 3
alerts:
  threshold_percent: 35.5
  recipient: ops@example.com
scraper:
  request_delay_seconds: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port override: got %q", cfg.Server.Port)
	}
	if cfg.ETL.DedupDays != 3 {
		t.Errorf("dedup override: got %d", cfg.ETL.DedupDays)
	}
	if cfg.Alerts.ThresholdPercent != 35.5 || cfg.Alerts.Recipient != "ops@example.com" {
		t.Errorf("alerts override: %+v", cfg.Alerts)
	}
	if cfg.Scraper.GetRequestDelay() != 5*time.Second {
		t.Errorf("request delay: got %v", cfg.Scraper.GetRequestDelay())
	}
	// Untouched sections keep their defaults
	if cfg.SMTP.Server != "smtp.gmail.com" {
		t.Errorf("untouched SMTP default lost: %q", cfg.SMTP.Server)
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
