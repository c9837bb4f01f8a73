package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "usage-limits.json")
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	snap := specSnapshot(now)

	require.NoError(t, writeCache(path, snap))

	got, err := readCache(path)
	require.NoError(t, err)
	assert.Equal(t, "max_5x", got.Plan)
	assert.True(t, got.FetchedAt.Equal(now))
	require.True(t, got.FiveHour.Active())
	assert.Equal(t, 39, got.FiveHour.Pct())
	assert.False(t, got.SevenDayOpus.Active())
	assert.True(t, got.Overage.Enabled)
}

func TestCache_MissingFile(t *testing.T) {
	_, err := readCache(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrCacheEmpty)
}

func TestCache_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage-limits.json")

	require.NoError(t, os.WriteFile(path, []byte("{{{ definitely not json"), 0o644))
	_, err := readCache(path)
	assert.ErrorIs(t, err, ErrCacheCorrupt)

	// parseable but empty is just as unusable
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err = readCache(path)
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}

func TestCache_WriteReplacesWholeSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage-limits.json")
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	require.NoError(t, writeCache(path, specSnapshot(now)))

	next := &Snapshot{
		Plan:      "pro",
		FetchedAt: now.Add(5 * time.Minute),
		FiveHour:  Bucket{Utilization: fptr(41)},
	}
	require.NoError(t, writeCache(path, next))

	got, err := readCache(path)
	require.NoError(t, err)
	// no merging with the previous snapshot
	assert.Equal(t, "pro", got.Plan)
	assert.False(t, got.SevenDay.Active())
	assert.False(t, got.Overage.Enabled)
}

func TestCache_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usage-limits.json")
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, writeCache(path, specSnapshot(now)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "usage-limits.json", entries[0].Name())
}

// Readers racing a writer must always see a complete snapshot: either the
// old one or the new one, never a torn mix. Each written snapshot carries
// its sequence number in two fields so a reader can check consistency.
func TestCache_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage-limits.json")
	mk := func(i int) *Snapshot {
		u := float64(i % 100)
		return &Snapshot{
			Plan:      fmt.Sprintf("p%d", i%100),
			FetchedAt: time.Now().UTC(),
			FiveHour:  Bucket{Utilization: &u},
		}
	}
	require.NoError(t, writeCache(path, mk(0)))

	var writeErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 200; i++ {
			if err := writeCache(path, mk(i)); err != nil {
				writeErr = err
				return
			}
		}
	}()

	reads := 0
	for alive := true; alive; {
		select {
		case <-done:
			alive = false
		default:
		}
		snap, err := readCache(path)
		require.NoError(t, err)
		require.True(t, snap.FiveHour.Active())
		assert.Equal(t, "p"+strconv.Itoa(int(*snap.FiveHour.Utilization)), snap.Plan)
		reads++
	}
	require.NoError(t, writeErr)
	assert.Greater(t, reads, 0)
}

func TestSnapshot_AgeAndStale(t *testing.T) {
	now := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	snap := &Snapshot{FetchedAt: now.Add(-20 * time.Minute)}

	assert.Equal(t, 20*time.Minute, snap.Age(now))
	assert.True(t, snap.Stale(now, 15*time.Minute))
	assert.False(t, snap.Stale(now, 30*time.Minute))
	assert.False(t, snap.Stale(now, 20*time.Minute)) // boundary is not stale yet
}
