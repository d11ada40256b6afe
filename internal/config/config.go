// Package config loads the insight client configuration from YAML with
// environment variable expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hustlexp/insight/internal/observability"
	"github.com/hustlexp/insight/internal/ratelimit"
)

// Config is the main configuration structure for insight.
type Config struct {
	API         APIConfig                 `yaml:"api"`
	Queue       QueueConfig               `yaml:"queue"`
	Experiments ExperimentsConfig         `yaml:"experiments"`
	RateLimit   ratelimit.Config          `yaml:"rate_limit"`
	Logging     observability.LogConfig   `yaml:"logging"`
	Tracing     observability.TraceConfig `yaml:"tracing"`
}

// APIConfig points the client at the analytics service.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// QueueConfig configures the feedback retry queue.
type QueueConfig struct {
	// Path is the SQLite file backing the queue. Empty defaults to
	// queue.db under the user config directory; ":memory:" selects an
	// ephemeral queue that does not survive restarts.
	Path          string        `yaml:"path"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// ExperimentsConfig configures variant assignment.
type ExperimentsConfig struct {
	// CatalogPath overrides the built-in experiment catalog.
	CatalogPath string `yaml:"catalog_path"`
	// StatePath is the SQLite file holding variant assignments. Empty
	// defaults to assignments.db under the user config directory;
	// ":memory:" keeps assignments for the process lifetime only.
	StatePath string `yaml:"state_path"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// DataDir returns the directory holding the client's durable state.
func DataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "insight")
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:3000/api"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 15 * time.Second
	}
	// Variant stickiness and queued events must survive the process, so
	// both stores default to files. ":memory:" is the explicit opt-out.
	if cfg.Queue.Path == "" {
		cfg.Queue.Path = filepath.Join(DataDir(), "queue.db")
	}
	if cfg.Experiments.StatePath == "" {
		cfg.Experiments.StatePath = filepath.Join(DataDir(), "assignments.db")
	}
	if cfg.Queue.FlushInterval == 0 {
		cfg.Queue.FlushInterval = 30 * time.Second
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "insight"
	}
	if cfg.Tracing.SamplingRate == 0 {
		cfg.Tracing.SamplingRate = 0.1
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Queue.FlushInterval < 0 {
		return fmt.Errorf("queue.flush_interval must not be negative")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive when enabled")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("tracing.sampling_rate must be within [0, 1]")
	}
	return nil
}
