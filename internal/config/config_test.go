package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "insight.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.example.com
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("timeout = %v, want default 15s", cfg.API.Timeout)
	}
	if cfg.Queue.FlushInterval != 30*time.Second {
		t.Errorf("flush_interval = %v, want default 30s", cfg.Queue.FlushInterval)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging level = %q, want info", cfg.Logging.Level)
	}
}

func TestDefaultPersistencePathsAreDurable(t *testing.T) {
	cfg := Default()

	// Sticky assignments and queued events must survive across processes,
	// so neither store may default to ephemeral storage.
	if cfg.Experiments.StatePath == "" || cfg.Experiments.StatePath == ":memory:" {
		t.Errorf("default state path = %q, want a file path", cfg.Experiments.StatePath)
	}
	if cfg.Queue.Path == "" || cfg.Queue.Path == ":memory:" {
		t.Errorf("default queue path = %q, want a file path", cfg.Queue.Path)
	}
	if filepath.Dir(cfg.Experiments.StatePath) != DataDir() {
		t.Errorf("state path %q not under data dir %q", cfg.Experiments.StatePath, DataDir())
	}
	if filepath.Dir(cfg.Queue.Path) != DataDir() {
		t.Errorf("queue path %q not under data dir %q", cfg.Queue.Path, DataDir())
	}
}

func TestLoadKeepsExplicitEphemeralPaths(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.example.com
queue:
  path: ":memory:"
experiments:
  state_path: ":memory:"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Queue.Path != ":memory:" {
		t.Errorf("queue path = %q, explicit opt-out overridden", cfg.Queue.Path)
	}
	if cfg.Experiments.StatePath != ":memory:" {
		t.Errorf("state path = %q, explicit opt-out overridden", cfg.Experiments.StatePath)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("INSIGHT_API_URL", "https://env.example.com")
	path := writeConfig(t, `
api:
  base_url: ${INSIGHT_API_URL}
queue:
  path: /var/lib/insight/queue.db
  flush_interval: 10s
rate_limit:
  enabled: true
  requests_per_second: 5
  burst_size: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Errorf("base_url = %q, env var not expanded", cfg.API.BaseURL)
	}
	if cfg.Queue.Path != "/var/lib/insight/queue.db" {
		t.Errorf("queue path = %q", cfg.Queue.Path)
	}
	if cfg.Queue.FlushInterval != 10*time.Second {
		t.Errorf("flush_interval = %v, want 10s", cfg.Queue.FlushInterval)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RequestsPerSecond != 5 {
		t.Errorf("rate_limit = %+v", cfg.RateLimit)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "negative timeout",
			content: `
api:
  base_url: https://api.example.com
  timeout: -1s
`,
		},
		{
			name: "rate limit enabled without rate",
			content: `
api:
  base_url: https://api.example.com
rate_limit:
  enabled: true
  requests_per_second: -3
`,
		},
		{
			name: "sampling rate above one",
			content: `
api:
  base_url: https://api.example.com
tracing:
  sampling_rate: 2.5
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load accepted an invalid config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load succeeded on a missing file")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
