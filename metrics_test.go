package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeLabel(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{ErrNoCredentials, "no_credentials"},
		{ErrTokenExpired, "token_expired"},
		{fmt.Errorf("%w (HTTP 401)", ErrAuthRejected), "auth_rejected"},
		{fmt.Errorf("%w: boom", ErrUnavailable), "unavailable"},
		{ErrBadResponse, "bad_response"},
		{errors.New("something else"), "error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, outcomeLabel(tc.err))
	}
}

func TestObserveSnapshot_DropsInactiveBuckets(t *testing.T) {
	m := newDaemonMetrics()
	now := time.Now().UTC()

	snap := specSnapshot(now)
	snap.Overage.Utilization = fptr(2)
	m.observeSnapshot(snap)
	// five_hour, seven_day, seven_day_sonnet, overage; opus is inactive
	assert.Equal(t, 4, testutil.CollectAndCount(m.utilization))
	assert.Equal(t, 39.0, testutil.ToFloat64(m.utilization.WithLabelValues("five_hour")))

	next := &Snapshot{
		Plan:      "pro",
		FetchedAt: now,
		FiveHour:  Bucket{Utilization: fptr(12)},
	}
	m.observeSnapshot(next)
	assert.Equal(t, 1, testutil.CollectAndCount(m.utilization))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.utilization.WithLabelValues("five_hour")))
}

func TestMetricsServer_Routes(t *testing.T) {
	m := newDaemonMetrics()
	m.fetches.WithLabelValues("success").Inc()

	srv := httptest.NewServer(metricsServer("127.0.0.1:0", m).Handler)
	defer srv.Close()

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, string(body))
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `ccusage_fetches_total{outcome="success"} 1`)
	})
}
