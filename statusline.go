package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// hostContext is the JSON Claude Code pipes to a statusline command on
// stdin. Only the fields we render are declared.
type hostContext struct {
	Model struct {
		DisplayName string `json:"display_name"`
	} `json:"model"`
	Workspace struct {
		CurrentDir string `json:"current_dir"`
	} `json:"workspace"`
	Cwd  string `json:"cwd"`
	Cost struct {
		TotalCostUSD float64 `json:"total_cost_usd"`
	} `json:"cost"`
}

// readHostContext parses the host JSON, tolerating empty or garbled
// stdin. The statusline has to render something no matter what.
func readHostContext(r io.Reader) hostContext {
	var hc hostContext
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return hostContext{}
	}
	if err := json.Unmarshal(data, &hc); err != nil {
		return hostContext{}
	}
	return hc
}

func (h hostContext) dir() string {
	d := h.Workspace.CurrentDir
	if d == "" {
		d = h.Cwd
	}
	return abbreviateHome(d)
}

func abbreviateHome(path string) string {
	if path == "" {
		return ""
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(os.PathSeparator)) {
		return "~" + path[len(home):]
	}
	return path
}

var statuslineChips = []struct {
	prefix string
	kind   BucketKind
}{
	{"5h", KindFiveHour},
	{"7d", KindSevenDay},
	{"son", KindSevenDaySonnet},
	{"opus", KindSevenDayOpus},
}

// renderStatusline builds the single-line segment Claude Code displays:
// working directory, model, one chip per active bucket, cost, plan tier,
// and the soonest reset. snap may be nil when no cache exists yet; the
// line still renders with just the host context.
func renderStatusline(snap *Snapshot, host hostContext, now time.Time, stale bool, pal palette) string {
	var parts []string
	if d := host.dir(); d != "" {
		parts = append(parts, pal.dim.Render(d))
	}
	if m := host.Model.DisplayName; m != "" {
		parts = append(parts, "["+pal.cyan.Render(m)+"]")
	}

	plan := "?"
	if snap != nil {
		if snap.Plan != "" {
			plan = snap.Plan
		}
		for _, chip := range statuslineChips {
			bk := snap.Bucket(chip.kind)
			if !bk.Active() {
				continue
			}
			parts = append(parts, chip.prefix+":"+renderPct(chip.kind, bk, now, pal))
		}
	}

	parts = append(parts, "| "+costChip(snap, host)+" | "+pal.dim.Render(plan))

	if snap != nil {
		if r := snap.SoonestReset(); r != nil {
			if cd := formatCountdown(r.Sub(now)); cd != "" {
				parts = append(parts, "| "+pal.dim.Render("reset:"+cd))
			}
		}
		if stale {
			parts = append(parts, "| "+pal.dim.Render("stale:"+formatAge(snap.Age(now))))
		}
	}
	return strings.Join(parts, " ")
}

// costChip picks the dollar figure: metered extra-usage spend when the
// account has it enabled, otherwise the host's session cost.
func costChip(snap *Snapshot, host hostContext) string {
	if snap != nil && snap.Overage.Enabled {
		return fmt.Sprintf("$%.2f", snap.Overage.UsedCredits/100)
	}
	if host.Cost.TotalCostUSD > 0 {
		return fmt.Sprintf("$%.2f", host.Cost.TotalCostUSD)
	}
	return "$0"
}
