package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL     = "https://api.anthropic.com"
	defaultIntervalSec = 300
	minIntervalSec     = 30
	defaultTimeoutSec  = 10
	defaultStaleSec    = 900
)

// Config holds ccusage settings. Everything is optional; the zero config
// monitors the local Claude Code install with the defaults below.
type Config struct {
	IntervalSec       int    `yaml:"interval_sec"`        // daemon refresh period
	RequestTimeoutSec int    `yaml:"request_timeout_sec"` // usage endpoint timeout
	StaleAfterSec     int    `yaml:"stale_after_sec"`     // cache age before the stale marker shows
	BaseURL           string `yaml:"base_url"`
	CredentialsPath   string `yaml:"credentials_path"`
	CachePath         string `yaml:"cache_path"`
	MetricsAddr       string `yaml:"metrics_addr"` // e.g. 127.0.0.1:9877; empty = no listener
	LogLevel          string `yaml:"log_level"`    // trace, debug, info, warn, error
}

func (c *Config) Interval() time.Duration       { return time.Duration(c.IntervalSec) * time.Second }
func (c *Config) RequestTimeout() time.Duration { return time.Duration(c.RequestTimeoutSec) * time.Second }
func (c *Config) StaleAfter() time.Duration     { return time.Duration(c.StaleAfterSec) * time.Second }

// loadConfig reads the optional YAML config. A missing file yields the
// defaults; a present but broken one is an error the user should see.
func loadConfig() (Config, error) {
	path := configPath()

	var cfg Config
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func configPath() string {
	if p := os.Getenv("CCUSAGE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(claudeDir(), "ccusage.yaml")
}

// claudeDir is where Claude Code keeps its local state.
func claudeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}

// ApplyDefaults fills empty fields and clamps the refresh interval to a
// floor so a typo cannot hammer the endpoint.
func (c *Config) ApplyDefaults() {
	if c.IntervalSec <= 0 {
		c.IntervalSec = defaultIntervalSec
	}
	if c.IntervalSec < minIntervalSec {
		c.IntervalSec = minIntervalSec
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = defaultTimeoutSec
	}
	if c.StaleAfterSec <= 0 {
		c.StaleAfterSec = defaultStaleSec
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.CredentialsPath == "" {
		c.CredentialsPath = filepath.Join(claudeDir(), ".credentials.json")
	}
	if c.CachePath == "" {
		c.CachePath = filepath.Join(claudeDir(), "usage-limits.json")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.CredentialsPath = expandHome(c.CredentialsPath)
	c.CachePath = expandHome(c.CachePath)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of trace, debug, info, warn, error; got %q", c.LogLevel)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base_url must be an http(s) URL, got %q", c.BaseURL)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
