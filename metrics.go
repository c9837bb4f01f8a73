package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// daemonMetrics exposes refresh-loop health for a scraper. The daemon is
// the only long-lived process, so it is the only place metrics live.
type daemonMetrics struct {
	registry      *prometheus.Registry
	utilization   *prometheus.GaugeVec
	fetches       *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	lastSuccess   prometheus.Gauge
}

func newDaemonMetrics() *daemonMetrics {
	reg := prometheus.NewRegistry()
	return &daemonMetrics{
		registry: reg,
		utilization: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ccusage",
			Name:      "bucket_utilization_percent",
			Help:      "Latest utilization per rate-limit bucket.",
		}, []string{"bucket"}),
		fetches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "ccusage",
			Name:      "fetches_total",
			Help:      "Usage endpoint fetch attempts by outcome.",
		}, []string{"outcome"}),
		fetchDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "ccusage",
			Name:      "fetch_duration_seconds",
			Help:      "Usage endpoint round-trip time.",
			Buckets:   prometheus.DefBuckets,
		}),
		lastSuccess: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "ccusage",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last snapshot successfully written.",
		}),
	}
}

// observeSnapshot publishes the bucket gauges for a fresh snapshot.
// Buckets that went inactive are removed so they do not pin a stale value.
func (m *daemonMetrics) observeSnapshot(snap *Snapshot) {
	for _, kind := range windowKinds {
		b := snap.Bucket(kind)
		if !b.Active() {
			m.utilization.DeleteLabelValues(string(kind))
			continue
		}
		m.utilization.WithLabelValues(string(kind)).Set(*b.Utilization)
	}
	if u := snap.Overage.Utilization; u != nil && snap.Overage.Enabled {
		m.utilization.WithLabelValues(string(KindOverage)).Set(*u)
	} else {
		m.utilization.DeleteLabelValues(string(KindOverage))
	}
	m.lastSuccess.SetToCurrentTime()
}

// outcomeLabel buckets a cycle error into a low-cardinality label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrAuthRejected):
		return "auth_rejected"
	case errors.Is(err, ErrBadResponse):
		return "bad_response"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// metricsServer builds the HTTP server for /metrics and /healthz.
func metricsServer(addr string, m *daemonMetrics) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: r}
}
