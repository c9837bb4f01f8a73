package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ccusage.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("CCUSAGE_CONFIG", path)
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	t.Setenv("CCUSAGE_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Interval())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 15*time.Minute, cfg.StaleAfter())
	assert.Equal(t, "https://api.anthropic.com", cfg.BaseURL)
	assert.Equal(t, "/home/dev/.claude/.credentials.json", cfg.CredentialsPath)
	assert.Equal(t, "/home/dev/.claude/usage-limits.json", cfg.CachePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	writeConfigFile(t, `
interval_sec: 120
base_url: https://proxy.example.com/
cache_path: ~/state/usage.json
log_level: debug
metrics_addr: 127.0.0.1:9877
`)

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Interval())
	// trailing slash trimmed so path joins stay clean
	assert.Equal(t, "https://proxy.example.com", cfg.BaseURL)
	assert.Equal(t, "/home/dev/state/usage.json", cfg.CachePath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9877", cfg.MetricsAddr)
}

func TestLoadConfig_ClampsInterval(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	writeConfigFile(t, "interval_sec: 1\n")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, minIntervalSec, cfg.IntervalSec)
}

func TestLoadConfig_BrokenYAML(t *testing.T) {
	writeConfigFile(t, "interval_sec: [not a number\n")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	t.Run("log level", func(t *testing.T) {
		t.Setenv("HOME", "/home/dev")
		writeConfigFile(t, "log_level: loud\n")
		_, err := loadConfig()
		assert.ErrorContains(t, err, "log_level")
	})

	t.Run("base url scheme", func(t *testing.T) {
		t.Setenv("HOME", "/home/dev")
		writeConfigFile(t, "base_url: api.anthropic.com\n")
		_, err := loadConfig()
		assert.ErrorContains(t, err, "base_url")
	})
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	t.Setenv("USAGE_PROXY", "https://proxy.internal")
	t.Setenv("UNSET_FOR_TEST", "")
	writeConfigFile(t, `
base_url: ${USAGE_PROXY}
log_level: ${UNSET_FOR_TEST:-warn}
`)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.internal", cfg.BaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	cases := []struct {
		in   string
		want string
	}{
		{"~", "/home/dev"},
		{"~/x/y", "/home/dev/x/y"},
		{"/abs/path", "/abs/path"},
		{"~user/x", "~user/x"}, // other users' homes are not resolved
		{"", ""},
	}
	for _, tc := range cases {
		if got := expandHome(tc.in); got != tc.want {
			t.Errorf("expandHome(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
