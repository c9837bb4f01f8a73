package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderStatusline_ProductExample(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	got := renderStatusline(specSnapshot(now), hostContext{}, now, false, plainPalette())
	assert.Equal(t, "5h:39% 7d:15% son:39% | $0.00 | max_5x | reset:1h26m", got)
}

func TestRenderStatusline_OpusChipWhenActive(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	snap := specSnapshot(now)
	r := now.Add(2 * time.Hour)
	snap.SevenDayOpus = Bucket{Utilization: fptr(41), ResetsAt: &r}

	got := renderStatusline(snap, hostContext{}, now, false, plainPalette())
	assert.Contains(t, got, "son:39% opus:41%")
}

func TestRenderStatusline_HostPrefix(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	var host hostContext
	host.Model.DisplayName = "Opus 4.6"
	host.Workspace.CurrentDir = "/home/dev/code"
	host.Cost.TotalCostUSD = 0.42

	got := renderStatusline(nil, host, now, false, plainPalette())
	assert.Equal(t, "~/code [Opus 4.6] | $0.42 | ?", got)
}

func TestRenderStatusline_NoCacheNoHost(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	got := renderStatusline(nil, hostContext{}, now, false, plainPalette())
	assert.Equal(t, "| $0 | ?", got)
}

func TestRenderStatusline_StaleChip(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	snap := specSnapshot(now.Add(-20 * time.Minute))
	got := renderStatusline(snap, hostContext{}, now, true, plainPalette())
	assert.True(t, strings.HasSuffix(got, "| stale:20m"), got)
}

func TestReadHostContext(t *testing.T) {
	in := `{
		"model": {"display_name": "Opus 4.6"},
		"workspace": {"current_dir": "/w"},
		"cost": {"total_cost_usd": 0.42}
	}`
	hc := readHostContext(strings.NewReader(in))
	assert.Equal(t, "Opus 4.6", hc.Model.DisplayName)
	assert.Equal(t, "/w", hc.Workspace.CurrentDir)
	assert.Equal(t, 0.42, hc.Cost.TotalCostUSD)

	assert.Equal(t, hostContext{}, readHostContext(strings.NewReader("not json")))
	assert.Equal(t, hostContext{}, readHostContext(strings.NewReader("")))
}

func TestHostContext_DirFallsBackToCwd(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	var hc hostContext
	hc.Cwd = "/tmp/scratch"
	assert.Equal(t, "/tmp/scratch", hc.dir())
}

func TestAbbreviateHome(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/home/dev", "~"},
		{"/home/dev/code", "~/code"},
		{"/home/devonshire", "/home/devonshire"},
		{"/var/log", "/var/log"},
	}
	for _, tc := range cases {
		if got := abbreviateHome(tc.in); got != tc.want {
			t.Errorf("abbreviateHome(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCostChip(t *testing.T) {
	var host hostContext

	snap := &Snapshot{Overage: Overage{Enabled: true, UsedCredits: 12345}}
	assert.Equal(t, "$123.45", costChip(snap, host))

	// overage off falls back to the host session cost
	host.Cost.TotalCostUSD = 0.42
	assert.Equal(t, "$0.42", costChip(&Snapshot{}, host))

	host.Cost.TotalCostUSD = 0
	assert.Equal(t, "$0", costChip(nil, host))
}
