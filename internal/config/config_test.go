package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
instance:
  id: test-hydrator
api:
  base_url: https://api.example.com
  api_key: test-key
feed:
  ws_url: wss://feed.example.com
chains:
  underlyings: [SPY, QQQ]
redis:
  addr: localhost:6379
`

func TestLoad(t *testing.T) {
	path := writeTempFile(t, validYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-hydrator" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-hydrator")
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://api.example.com")
	}
	if len(cfg.Chains.Underlyings) != 2 || cfg.Chains.Underlyings[0] != "SPY" {
		t.Errorf("Chains.Underlyings = %v, want [SPY QQQ]", cfg.Chains.Underlyings)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_API_KEY", "secret123")

	yaml := `
instance:
  id: test-hydrator
api:
  base_url: https://api.example.com
  api_key: ${TEST_API_KEY}
feed:
  ws_url: wss://feed.example.com
chains:
  underlyings: [SPY]
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.APIKey != "secret123" {
		t.Errorf("API.APIKey = %q, want %q", cfg.API.APIKey, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, validYAML)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.Feed.Mode != DefaultFeedMode {
		t.Errorf("Feed.Mode = %q, want %q", cfg.Feed.Mode, DefaultFeedMode)
	}
	if cfg.Feed.BufferSize != DefaultFeedBufferSize {
		t.Errorf("Feed.BufferSize = %d, want %d", cfg.Feed.BufferSize, DefaultFeedBufferSize)
	}
	if cfg.Chains.Expirations != DefaultExpirations {
		t.Errorf("Chains.Expirations = %d, want %d", cfg.Chains.Expirations, DefaultExpirations)
	}
	if cfg.Chains.Stddevs != DefaultStddevs {
		t.Errorf("Chains.Stddevs = %v, want %v", cfg.Chains.Stddevs, DefaultStddevs)
	}
	if cfg.Store.GracePeriod != DefaultGracePeriod {
		t.Errorf("Store.GracePeriod = %v, want %v", cfg.Store.GracePeriod, DefaultGracePeriod)
	}
	if cfg.Publish.TTL != DefaultSnapshotTTL {
		t.Errorf("Publish.TTL = %v, want %v", cfg.Publish.TTL, DefaultSnapshotTTL)
	}
	if cfg.Model.Interval != DefaultModelInterval {
		t.Errorf("Model.Interval = %v, want %v", cfg.Model.Interval, DefaultModelInterval)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
}

func TestLoadWithDefaults_ExplicitValuesKept(t *testing.T) {
	yaml := validYAML + `
publish:
  ttl: 90s
model:
  interval: 5s
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Publish.TTL != 90*time.Second {
		t.Errorf("Publish.TTL = %v, want 90s", cfg.Publish.TTL)
	}
	if cfg.Model.Interval != 5*time.Second {
		t.Errorf("Model.Interval = %v, want 5s", cfg.Model.Interval)
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, validYAML)
	if _, err := LoadAndValidate(path); err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*HydratorConfig)
	}{
		{"missing instance id", func(c *HydratorConfig) { c.Instance.ID = "" }},
		{"missing api base url", func(c *HydratorConfig) { c.API.BaseURL = "" }},
		{"missing feed ws url", func(c *HydratorConfig) { c.Feed.WSURL = "" }},
		{"bad feed mode", func(c *HydratorConfig) { c.Feed.Mode = "firehose" }},
		{"no underlyings", func(c *HydratorConfig) { c.Chains.Underlyings = nil }},
		{"zero stddevs", func(c *HydratorConfig) { c.Chains.Stddevs = -1 }},
		{"zero publish ttl", func(c *HydratorConfig) { c.Publish.TTL = -time.Second }},
		{"missing redis addr", func(c *HydratorConfig) { c.Redis.Addr = "" }},
		{"bad metrics port", func(c *HydratorConfig) { c.Metrics.Port = 70000 }},
		{"archive enabled without host", func(c *HydratorConfig) {
			c.Archive.Enabled = true
			c.Archive.Database = DBConfig{Name: "x", User: "u", Password: "p", MaxConns: 5}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWithDefaults(writeTempFile(t, validYAML))
			if err != nil {
				t.Fatalf("LoadWithDefaults failed: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}
