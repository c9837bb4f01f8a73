package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// palette is the small set of styles the text renderers use. Tests pass
// plainPalette so expected strings stay free of escape codes.
type palette struct {
	red    lipgloss.Style
	yellow lipgloss.Style
	green  lipgloss.Style
	cyan   lipgloss.Style
	dim    lipgloss.Style
}

func colorPalette() palette {
	return palette{
		red:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		yellow: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		green:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		cyan:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func plainPalette() palette {
	s := lipgloss.NewStyle()
	return palette{red: s, yellow: s, green: s, cyan: s, dim: s}
}

// formatCountdown renders a duration as the statusline-style countdown:
// whole minutes under an hour ("26m"), hours and minutes above ("1h26m",
// "143h26m"). Minutes are floored and hours never roll over into days.
// Anything at or past zero renders empty.
func formatCountdown(d time.Duration) string {
	secs := int(d.Seconds())
	if secs <= 0 {
		return ""
	}
	mins := secs / 60
	if mins >= 60 {
		return fmt.Sprintf("%dh%dm", mins/60, mins%60)
	}
	return fmt.Sprintf("%dm", mins)
}

// formatAge is formatCountdown for durations in the past, where "just
// now" should still say something.
func formatAge(d time.Duration) string {
	if s := formatCountdown(d); s != "" {
		return s
	}
	return "0m"
}

func resetCountdown(b Bucket, now time.Time) string {
	if b.ResetsAt == nil {
		return ""
	}
	return formatCountdown(b.ResetsAt.Sub(now))
}

// elapsedFraction reports how far into its window a bucket is, in [0, 1].
// The API only sends the reset time, so elapsed is derived from the
// nominal window length and clamped against clock skew.
func elapsedFraction(kind BucketKind, b Bucket, now time.Time) float64 {
	win := kind.windowLength()
	if win <= 0 || b.ResetsAt == nil {
		return 0
	}
	elapsed := win - b.ResetsAt.Sub(now)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > win {
		elapsed = win
	}
	return float64(elapsed) / float64(win)
}

// warnAt pairs a utilization floor with the elapsed window fraction at
// which that utilization becomes worth flagging.
type warnAt struct {
	pct     float64
	elapsed float64
}

// Published warning thresholds of the rate limiter this tool mirrors.
var (
	fiveHourWarn = []warnAt{{90, 0.72}}
	sevenDayWarn = []warnAt{{75, 0.60}, {50, 0.35}, {25, 0.15}}
)

// bucketWarning reports whether a bucket has crossed a warning
// threshold for its kind. The rungs are alternatives: the bucket warns
// as soon as any rung's utilization floor and elapsed fraction are
// both met, so higher usage never warns later than lower usage.
func bucketWarning(kind BucketKind, b Bucket, now time.Time) bool {
	if !b.Active() {
		return false
	}
	var ladder []warnAt
	switch kind {
	case KindFiveHour:
		ladder = fiveHourWarn
	case KindSevenDay, KindSevenDaySonnet, KindSevenDayOpus:
		ladder = sevenDayWarn
	default:
		return false
	}
	util := *b.Utilization
	frac := elapsedFraction(kind, b, now)
	for _, w := range ladder {
		if util >= w.pct && frac >= w.elapsed {
			return true
		}
	}
	return false
}

// renderPct colors a percentage by how close the bucket is to its limit.
// A bucket past its warning threshold is always red.
func renderPct(kind BucketKind, b Bucket, now time.Time, pal palette) string {
	pct := b.Pct()
	s := fmt.Sprintf("%d%%", pct)
	switch {
	case bucketWarning(kind, b, now):
		return pal.red.Render(s)
	case pct >= 70:
		return pal.red.Render(s)
	case pct >= 50:
		return pal.yellow.Render(s)
	default:
		return pal.green.Render(s)
	}
}

var summaryRows = []struct {
	label string
	kind  BucketKind
}{
	{"Session (5h)", KindFiveHour},
	{"Week (all)", KindSevenDay},
	{"Week (Sonnet)", KindSevenDaySonnet},
	{"Week (Opus)", KindSevenDayOpus},
}

// renderSummary builds the multi-line usage report: plan header, one line
// per active bucket, and the overage line when extra usage is enabled.
// Inactive buckets are omitted rather than shown as 0%.
func renderSummary(snap *Snapshot, now time.Time, stale bool, pal palette) string {
	var b strings.Builder
	b.WriteString("Plan: " + snap.Plan)
	if stale {
		b.WriteString(" " + pal.dim.Render("(cached "+formatAge(snap.Age(now))+" ago)"))
	}
	for _, row := range summaryRows {
		bk := snap.Bucket(row.kind)
		if !bk.Active() {
			continue
		}
		line := fmt.Sprintf("  %-20s %s", row.label, renderPct(row.kind, bk, now, pal))
		if cd := resetCountdown(bk, now); cd != "" {
			line += pal.dim.Render(" resets " + cd)
		}
		b.WriteString("\n" + line)
	}
	if ov := snap.Overage; ov.Enabled {
		var limit float64
		if ov.MonthlyLimit != nil {
			limit = *ov.MonthlyLimit
		}
		b.WriteString(fmt.Sprintf("\n  %-20s $%.2f / $%.2f", "Extra usage", ov.UsedCredits/100, limit/100))
	}
	return b.String()
}

// renderJSON dumps the normalized snapshot for scripting.
func renderJSON(snap *Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
