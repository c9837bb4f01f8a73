package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
)

const version = "1.0"

func main() {
	// Claude Code consumes our output through a pipe; color must survive it.
	lipgloss.SetColorProfile(termenv.ANSI)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ccusage:", err)
		os.Exit(1)
	}

	cmd := "status"
	args := os.Args[1:]
	if len(args) > 0 {
		switch {
		case args[0] == "help" || args[0] == "-h" || args[0] == "--help":
			usage(os.Stdout)
			return
		case !strings.HasPrefix(args[0], "-"):
			cmd, args = args[0], args[1:]
		}
	}

	switch cmd {
	case "status":
		os.Exit(cmdStatus(cfg, args, false))
	case "json":
		os.Exit(cmdStatus(cfg, args, true))
	case "statusline":
		os.Exit(cmdStatusline(cfg))
	case "daemon":
		os.Exit(cmdDaemon(cfg, args))
	case "dashboard":
		os.Exit(cmdDashboard(cfg))
	case "install":
		cmdInstall(cfg)
	default:
		fmt.Fprintf(os.Stderr, "ccusage: unknown command %q\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}
}

// acquireSnapshot picks the freshest snapshot available: a live fetch
// when allowed, else the cache. stale reports whether the caller is
// looking at old data.
func acquireSnapshot(ctx context.Context, cfg Config, cachedOnly bool) (snap *Snapshot, stale bool, err error) {
	now := time.Now()
	if cachedOnly {
		snap, err = readCache(cfg.CachePath)
		if err != nil {
			return nil, false, err
		}
		return snap, snap.Stale(now, cfg.StaleAfter()), nil
	}

	creds, err := loadCredentials(cfg)
	if err == nil {
		snap, err = fetchSnapshot(ctx, cfg, creds)
		if err == nil {
			if werr := writeCache(cfg.CachePath, snap); werr != nil {
				fmt.Fprintln(os.Stderr, "ccusage:", werr)
			}
			return snap, false, nil
		}
	}

	// both degraded paths behave the same: serve the cache, say why
	snap, cerr := readCache(cfg.CachePath)
	if cerr != nil {
		return nil, false, fmt.Errorf("fetch failed (%v) and no usable cache (%v)", err, cerr)
	}
	fmt.Fprintf(os.Stderr, "ccusage: %v (showing cached data)\n", err)
	return snap, snap.Stale(now, cfg.StaleAfter()), nil
}

func cmdStatus(cfg Config, args []string, asJSON bool) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cached := fs.Bool("cached", false, "serve the cached snapshot without fetching")
	fs.Parse(args)

	now := time.Now()
	snap, stale, err := acquireSnapshot(context.Background(), cfg, *cached)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ccusage:", err)
		return 1
	}

	if asJSON {
		out, err := renderJSON(snap)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ccusage:", err)
			return 1
		}
		fmt.Println(out)
		return 0
	}

	pal := colorPalette()
	out := renderSummary(snap, now, stale, pal)
	if ts := sessionTokens(snap, now); ts.Total() > 0 {
		out += "\n" + renderTokensLine(ts, pal)
	}
	fmt.Println(out)
	return 0
}

// cmdStatusline renders from the cache alone. Claude Code calls this
// every few seconds, so it must be cheap and must never fail.
func cmdStatusline(cfg Config) int {
	host := readHostContext(os.Stdin)
	now := time.Now()

	var (
		snap  *Snapshot
		stale bool
	)
	if s, err := readCache(cfg.CachePath); err == nil {
		snap = s
		stale = s.Stale(now, cfg.StaleAfter())
	}
	fmt.Println(renderStatusline(snap, host, now, stale, colorPalette()))
	return 0
}

func cmdDaemon(cfg Config, args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	fs.IntVar(&cfg.IntervalSec, "i", cfg.IntervalSec, "refresh interval in seconds")
	fs.IntVar(&cfg.IntervalSec, "interval", cfg.IntervalSec, "refresh interval in seconds")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	fs.Parse(args)
	cfg.ApplyDefaults() // re-clamp the interval after flag overrides

	logger := newLogger(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newDaemon(cfg, logger).run(ctx); err != nil {
		logger.Error().Err(err).Msg("daemon exited")
		return 1
	}
	return 0
}

func cmdDashboard(cfg Config) int {
	p := tea.NewProgram(newDashboard(cfg), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "ccusage:", err)
		return 1
	}
	return 0
}

func cmdInstall(cfg Config) {
	exe, err := os.Executable()
	if err != nil {
		exe = "ccusage"
	}
	fmt.Printf(`ccusage setup
=============

1. Run the daemon (in a terminal, tmux, or systemd):
   %s daemon

2. Configure the Claude Code statusline in ~/.claude/settings.json:
   {
     "statusLine": {
       "type": "command",
       "command": "%s statusline"
     }
   }

3. The statusline reads %s (written by the daemon)
   and shows the 5h session, 7d all-models, and per-model limits.

Optional overrides go in %s:
   interval_sec: 300
   metrics_addr: 127.0.0.1:9877
`, exe, exe, cfg.CachePath, configPath())
}

func newLogger(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `ccusage %s - Claude rate limit monitor

Usage: ccusage [command] [flags]

Commands:
  status      Show current usage (default)
  json        Print the usage snapshot as JSON
  statusline  Render the Claude Code statusline segment (reads stdin)
  daemon      Keep the snapshot cache fresh in the foreground
  dashboard   Interactive usage dashboard
  install     Print setup instructions
  help        Show this help

Flags:
  status, json:
      --cached          serve the cached snapshot, no network
  daemon:
      -i, --interval N  refresh every N seconds (default %d)
      --metrics ADDR    serve Prometheus metrics and /healthz on ADDR
`, version, defaultIntervalSec)
}
