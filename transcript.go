package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TokenStats totals the token usage found in local session transcripts.
type TokenStats struct {
	InputTokens   int
	OutputTokens  int
	CacheCreation int
	CacheRead     int
}

func (t TokenStats) Total() int {
	return t.InputTokens + t.OutputTokens + t.CacheCreation + t.CacheRead
}

func (t *TokenStats) add(u tokenUsage) {
	t.InputTokens += u.InputTokens
	t.OutputTokens += u.OutputTokens
	t.CacheCreation += u.CacheCreationInputTokens
	t.CacheRead += u.CacheReadInputTokens
}

// transcriptEntry is one line of a Claude Code session transcript. Only
// assistant entries carry usage.
type transcriptEntry struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Message   *struct {
		ID    string      `json:"id"`
		Usage *tokenUsage `json:"usage"`
	} `json:"message"`
}

type tokenUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
}

func transcriptDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	candidates := []string{
		filepath.Join(home, ".claude", "projects"),
		filepath.Join(home, ".config", "claude", "projects"),
	}
	var dirs []string
	for _, d := range candidates {
		if info, err := os.Stat(d); err == nil && info.IsDir() {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// scanTranscriptTokens walks the local transcript dirs and totals token
// usage for entries at or after the cutoff. Unreadable files and dirs are
// skipped; this is a best-effort local estimate, not billing data.
func scanTranscriptTokens(since time.Time) TokenStats {
	var stats TokenStats
	for _, root := range transcriptDirs() {
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".jsonl" {
				return nil
			}
			// mtime filter saves re-reading sessions that ended before the window
			if info, err := d.Info(); err == nil && info.ModTime().Before(since) {
				return nil
			}
			scanTranscriptFile(path, since, &stats)
			return nil
		})
	}
	return stats
}

func scanTranscriptFile(path string, since time.Time, stats *TokenStats) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	// Streaming writes repeat a message ID with cumulative usage; only the
	// last entry per ID holds the final counts.
	final := make(map[string]tokenUsage)
	var anonymous []tokenUsage

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 512*1024), 512*1024)
	for scanner.Scan() {
		var entry transcriptEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry.Type != "assistant" || entry.Message == nil || entry.Message.Usage == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, entry.Timestamp)
		if err != nil || ts.Before(since) {
			continue
		}
		if entry.Message.ID != "" {
			final[entry.Message.ID] = *entry.Message.Usage
		} else {
			anonymous = append(anonymous, *entry.Message.Usage)
		}
	}

	for _, u := range final {
		stats.add(u)
	}
	for _, u := range anonymous {
		stats.add(u)
	}
}

// sessionTokens totals transcript tokens for the current five-hour
// window, so the summary can show what this session has consumed locally.
func sessionTokens(snap *Snapshot, now time.Time) TokenStats {
	if snap == nil {
		return TokenStats{}
	}
	b := snap.FiveHour
	if !b.Active() || b.ResetsAt == nil {
		return TokenStats{}
	}
	start := b.ResetsAt.Add(-KindFiveHour.windowLength())
	if start.After(now) {
		return TokenStats{}
	}
	return scanTranscriptTokens(start)
}

func renderTokensLine(ts TokenStats, pal palette) string {
	line := fmt.Sprintf("  %-20s %s", "Session tokens", formatTokenCount(ts.Total()))
	if cached := ts.CacheRead + ts.CacheCreation; cached > 0 {
		line += pal.dim.Render(fmt.Sprintf(" (%s cached)", formatTokenCount(cached)))
	}
	return line
}

func formatTokenCount(n int) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 10_000:
		return fmt.Sprintf("%.0fK", float64(n)/1_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
