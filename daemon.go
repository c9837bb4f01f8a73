package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// daemon owns the refresh loop: fetch, write cache, log, sleep, forever.
// It is the single writer of the cache file; statuslines and one-shot
// runs only read it.
type daemon struct {
	cfg     Config
	logger  zerolog.Logger
	metrics *daemonMetrics
}

func newDaemon(cfg Config, logger zerolog.Logger) *daemon {
	return &daemon{cfg: cfg, logger: logger, metrics: newDaemonMetrics()}
}

// run executes refresh cycles until the context is canceled. A failed
// cycle is logged and the loop keeps going; only cancellation ends it.
func (d *daemon) run(ctx context.Context) error {
	d.logger.Info().
		Dur("interval", d.cfg.Interval()).
		Str("cache", d.cfg.CachePath).
		Msg("daemon started")

	var srv *http.Server
	if d.cfg.MetricsAddr != "" {
		srv = metricsServer(d.cfg.MetricsAddr, d.metrics)
		go func() {
			d.logger.Info().Str("addr", d.cfg.MetricsAddr).Msg("metrics listener started")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	ticker := time.NewTicker(d.cfg.Interval())
	defer ticker.Stop()

	// first refresh immediately, not one interval from now
	d.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("daemon stopping")
			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				srv.Shutdown(shutdownCtx)
				cancel()
			}
			return nil
		case <-ticker.C:
			d.cycle(ctx)
		}
	}
}

// cycle is one refresh attempt. Every failure mode ends with the loop
// still alive and the previous cache intact.
func (d *daemon) cycle(ctx context.Context) {
	start := time.Now()
	snap, err := d.refresh(ctx)
	d.metrics.fetches.WithLabelValues(outcomeLabel(err)).Inc()
	d.metrics.fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return // shutting down, not a real failure
		}
		d.logger.Warn().Err(err).Msg("refresh failed, keeping previous snapshot")
		return
	}
	d.metrics.observeSnapshot(snap)

	ev := d.logger.Info()
	for _, kind := range windowKinds {
		if b := snap.Bucket(kind); b.Active() {
			ev = ev.Int(string(kind), b.Pct())
		}
	}
	ev.Str("plan", snap.Plan).Msg("snapshot written")
}

// refresh re-reads credentials every cycle; Claude Code rotates the
// token out from under long-lived processes.
func (d *daemon) refresh(ctx context.Context) (*Snapshot, error) {
	creds, err := loadCredentials(d.cfg)
	if err != nil {
		return nil, err
	}
	snap, err := fetchSnapshot(ctx, d.cfg, creds)
	if err != nil {
		return nil, err
	}
	if err := writeCache(d.cfg.CachePath, snap); err != nil {
		return nil, err
	}
	return snap, nil
}
