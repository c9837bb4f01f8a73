package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// writeCache atomically replaces the snapshot cache. The snapshot is
// written to a temp file in the same directory and renamed into place, so
// a statusline reading mid-write sees either the old file or the new one,
// never a torn write. Temp names are unique; concurrent writers race on
// the rename and the loser's snapshot simply wins or loses whole.
func writeCache(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp cache: %w", err)
	}
	// CreateTemp gives 0600; the cache holds no secrets.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp cache: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// readCache loads the last snapshot a daemon or one-shot run wrote.
func readCache(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s (run `ccusage` or start the daemon)", ErrCacheEmpty, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if snap.FetchedAt.IsZero() {
		return nil, fmt.Errorf("%w: snapshot has no fetched_at", ErrCacheCorrupt)
	}
	return &snap, nil
}

// Age reports how long ago the snapshot was fetched.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// Stale reports whether the snapshot is older than the configured cutoff.
func (s *Snapshot) Stale(now time.Time, after time.Duration) bool {
	return s.Age(now) > after
}
