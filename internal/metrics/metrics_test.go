package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RefreshSucceeded()
	m.RefreshFailed()
	m.RefreshFailed()
	m.Queued()
	m.AuthFailure()
	m.Logout()
	m.ObserveRequest("GET", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", 0, time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(m.RefreshTotal.WithLabelValues("success")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.RefreshTotal.WithLabelValues("failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.QueuedTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AuthFailuresTotal))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LogoutsTotal))
	require.Equal(t, 2, testutil.CollectAndCount(m.RequestDuration))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Greater(t, n, 0)
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.RefreshSucceeded()
		m.RefreshFailed()
		m.Queued()
		m.AuthFailure()
		m.Logout()
		m.ObserveRequest("POST", 401, time.Second)
	})
}
