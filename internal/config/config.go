// Package config loads ashare settings from defaults, an optional YAML
// file, and ASHARE_* environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/quantrail/ashare/internal/core"
)

// Provider holds settings for the upstream data source.
type Provider struct {
	TimeoutSec    int `yaml:"timeout"`     // per-request timeout, seconds
	RetryCount    int `yaml:"retry_count"` // attempts on retryable failures
	RetryDelaySec int `yaml:"retry_delay"` // base back-off, doubled per attempt
}

// Config is the resolved ashare configuration.
type Config struct {
	CacheDir   string   `yaml:"cache_dir"`
	LogLevel   string   `yaml:"log_level"`
	MaxWorkers int      `yaml:"max_workers"`
	Adjust     string   `yaml:"adjust"`
	Provider   Provider `yaml:"provider"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CacheDir:   core.CacheRoot(),
		LogLevel:   "info",
		MaxWorkers: core.DefaultMaxWorkers,
		Adjust:     core.DefaultAdjust,
		Provider: Provider{
			TimeoutSec:    core.DefaultTimeoutSec,
			RetryCount:    core.DefaultRetryCount,
			RetryDelaySec: core.DefaultRetryDelay,
		},
	}
}

// Load resolves the configuration. path is the --config flag value; when
// empty, ASHARE_CONFIG and then ~/.ashare/config.yaml are consulted. A
// missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv(core.ConfigEnvVar)
		explicit = path != ""
	}
	if path == "" {
		path = filepath.Join(core.AppDir(), "config.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// No config file is fine, defaults apply.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.Provider.RetryCount < 1 {
		cfg.Provider.RetryCount = 1
	}

	return cfg, nil
}

// applyEnv overlays ASHARE_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ASHARE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("ASHARE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ASHARE_ADJUST"); v != "" {
		cfg.Adjust = v
	}
	if v := os.Getenv("ASHARE_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxWorkers = n
		}
	}
}

// CachePath returns the SQLite database path under the cache directory.
func (c *Config) CachePath() string {
	return filepath.Join(c.CacheDir, "stock_data.db")
}
