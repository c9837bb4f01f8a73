package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// messages

type snapshotMsg struct {
	snap   *Snapshot
	err    error
	cached bool // replayed from the cache file, not a fresh fetch
}

type tokensMsg TokenStats

type tickMsg time.Time

// styles

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	labelStyle = lipgloss.NewStyle().
			Width(16).
			Foreground(lipgloss.Color("252"))

	resetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			MarginLeft(16)

	percentStyle = lipgloss.NewStyle().
			Width(6).
			Align(lipgloss.Right).
			Foreground(lipgloss.Color("252"))

	warnPercentStyle = lipgloss.NewStyle().
				Width(6).
				Align(lipgloss.Right).
				Bold(true).
				Foreground(lipgloss.Color("196"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	staleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(1, 2)
)

var dashboardLabels = map[BucketKind]string{
	KindFiveHour:       "Session (5h)",
	KindSevenDay:       "Weekly (7d)",
	KindSevenDaySonnet: "Sonnet (7d)",
	KindSevenDayOpus:   "Opus (7d)",
}

// model

type dashboard struct {
	cfg  Config
	snap *Snapshot
	err  error

	lastFetch time.Time
	stale     bool
	tokens    TokenStats

	bars    []progress.Model // one per windowKinds entry
	spinner spinner.Model

	loading     bool
	width       int
	height      int
	barCount    int       // active buckets currently shown
	lastRefresh time.Time // debounce
	hoverBar    int       // -1 = none, else index into visible bars
}

func newDashboard(cfg Config) dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

	bars := make([]progress.Model, len(windowKinds))
	for i := range bars {
		bars[i] = newBar(30)
	}

	d := dashboard{
		cfg:      cfg,
		bars:     bars,
		spinner:  s,
		loading:  true,
		hoverBar: -1,
	}
	// show the cached snapshot immediately while the first fetch runs
	if snap, err := readCache(cfg.CachePath); err == nil {
		d.snap = snap
		d.stale = snap.Stale(time.Now(), cfg.StaleAfter())
		d.lastFetch = snap.FetchedAt
		d.barCount = activeWindowCount(snap)
	}
	return d
}

func newBar(width int) progress.Model {
	return progress.New(
		progress.WithScaledGradient("#76EEC6", "#FF6347"),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
}

func activeWindowCount(snap *Snapshot) int {
	n := 0
	for _, kind := range windowKinds {
		if snap.Bucket(kind).Active() {
			n++
		}
	}
	return n
}

func (m dashboard) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, fetchCmd(m.cfg), tickCmd(m.cfg.Interval())}
	if m.snap != nil {
		snap := m.snap
		cmds = append(cmds, func() tea.Msg { return snapshotMsg{snap: snap, cached: true} })
	}
	return tea.Batch(cmds...)
}

// fetchCmd runs one full refresh: credentials, endpoint, cache. The
// dashboard keeps the shared cache warm just like the daemon does.
func fetchCmd(cfg Config) tea.Cmd {
	return func() tea.Msg {
		creds, err := loadCredentials(cfg)
		if err != nil {
			return snapshotMsg{err: err}
		}
		snap, err := fetchSnapshot(context.Background(), cfg, creds)
		if err != nil {
			return snapshotMsg{err: err}
		}
		writeCache(cfg.CachePath, snap)
		return snapshotMsg{snap: snap}
	}
}

func tokensCmd(snap *Snapshot) tea.Cmd {
	return func() tea.Msg {
		return tokensMsg(sessionTokens(snap, time.Now()))
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if time.Since(m.lastRefresh) < 10*time.Second {
				return m, nil
			}
			m.loading = true
			m.lastRefresh = time.Now()
			return m, tea.Batch(m.spinner.Tick, fetchCmd(m.cfg))
		}

	case snapshotMsg:
		if msg.err != nil {
			m.loading = false
			if m.snap != nil {
				// keep showing the old snapshot, flagged stale
				m.stale = true
			}
			m.err = msg.err
			return m, nil
		}
		if !msg.cached {
			m.loading = false
			m.err = nil
			m.stale = false
			m.lastFetch = time.Now()
		}
		m.snap = msg.snap
		m.barCount = activeWindowCount(m.snap)

		var cmds []tea.Cmd
		for i, kind := range windowKinds {
			if b := m.snap.Bucket(kind); b.Active() {
				cmds = append(cmds, m.bars[i].SetPercent(*b.Utilization/100))
			}
		}
		cmds = append(cmds, tokensCmd(m.snap))
		return m, tea.Batch(cmds...)

	case tokensMsg:
		m.tokens = TokenStats(msg)
		return m, nil

	case tickMsg:
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, fetchCmd(m.cfg), tickCmd(m.cfg.Interval()))

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := max(20, min(msg.Width-40, 40))
		for i := range m.bars {
			m.bars[i].Width = barWidth
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		// border(1) + padding(1) + title(1) + blank(1) = 4 lines before first bar
		// each bar section: bar line, reset line, blank line = 3 lines
		y := msg.Y
		barStart := 4
		m.hoverBar = -1
		for i := 0; i < m.barCount; i++ {
			rowTop := barStart + i*3
			rowBot := rowTop + 1 // bar line + reset line
			if y >= rowTop && y <= rowBot {
				m.hoverBar = i
				break
			}
		}
		return m, nil

	case progress.FrameMsg:
		cmds := make([]tea.Cmd, 0, len(m.bars))
		for i := range m.bars {
			pm, c := m.bars[i].Update(msg)
			m.bars[i] = pm.(progress.Model)
			cmds = append(cmds, c)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m dashboard) View() string {
	var b strings.Builder

	// title row
	title := titleStyle.Render("ccusage")
	right := ""
	if m.loading {
		right = m.spinner.View()
	} else if m.stale {
		right = staleStyle.Render("stale")
	}
	titleRow := title
	if m.snap != nil && m.snap.Plan != "" {
		titleRow += "  " + footerStyle.Render(m.snap.Plan)
	}
	if right != "" {
		titleRow += "  " + right
	}
	b.WriteString(titleRow + "\n\n")

	// error only (no data yet)
	if m.err != nil && m.snap == nil {
		b.WriteString(errorStyle.Render("  "+m.err.Error()) + "\n")
		return borderStyle.Render(b.String())
	}

	if m.snap != nil {
		now := time.Now()
		barIdx := 0
		for i, kind := range windowKinds {
			bk := m.snap.Bucket(kind)
			if !bk.Active() {
				continue
			}
			warn := bucketWarning(kind, bk, now)
			b.WriteString(renderUsageBar(dashboardLabels[kind], m.bars[i], bk, warn, m.hoverBar == barIdx))
			barIdx++
		}
		if ov := m.snap.Overage; ov.Enabled {
			var limit float64
			if ov.MonthlyLimit != nil {
				limit = *ov.MonthlyLimit
			}
			line := labelStyle.Render("Extra usage") +
				footerStyle.Render(fmt.Sprintf("$%.2f / $%.2f", ov.UsedCredits/100, limit/100))
			b.WriteString(line + "\n\n")
		}
	}

	// stale error
	if m.stale && m.err != nil {
		b.WriteString(staleStyle.Render("  "+m.err.Error()) + "\n\n")
	}

	// footer
	var footer []string
	if !m.lastFetch.IsZero() {
		footer = append(footer, "updated "+m.lastFetch.Format("15:04"))
	}
	if m.tokens.Total() > 0 {
		footer = append(footer, formatTokenCount(m.tokens.Total())+" tokens this session")
	}
	if len(footer) > 0 {
		b.WriteString(footerStyle.Render(strings.Join(footer, "  •  ")))
	}

	return borderStyle.Render(b.String())
}

var hoverPercentStyle = lipgloss.NewStyle().
	Width(8).
	Align(lipgloss.Right).
	Bold(true).
	Foreground(lipgloss.Color("255"))

func renderUsageBar(label string, bar progress.Model, bucket Bucket, warn, hover bool) string {
	pct := *bucket.Utilization
	var pctStr string
	switch {
	case hover:
		pctStr = hoverPercentStyle.Render(fmt.Sprintf("%.2f%%", pct))
	case warn:
		pctStr = warnPercentStyle.Render(fmt.Sprintf("%.0f%%", pct))
	default:
		pctStr = percentStyle.Render(fmt.Sprintf("%.0f%%", pct))
	}
	line := labelStyle.Render(label) + bar.View() + " " + pctStr + "\n"

	resetLine := resetStyle.Render("—") + "\n"
	if bucket.ResetsAt != nil {
		resetLine = resetStyle.Render(formatReset(*bucket.ResetsAt)) + "\n"
	}

	return line + resetLine + "\n"
}

func formatReset(t time.Time) string {
	until := time.Until(t)
	if until <= 0 {
		return "resetting..."
	}

	if until < time.Hour {
		return fmt.Sprintf("resets in %dm", int(math.Ceil(until.Minutes())))
	}
	if until < 24*time.Hour {
		h := int(until.Hours())
		m := int(until.Minutes()) % 60
		return fmt.Sprintf("resets in %dh %dm", h, m)
	}
	return "resets " + t.Local().Format("Mon Jan 2")
}
