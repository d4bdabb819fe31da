package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type remoteMetrics struct {
	calls    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Tracker instruments a single call against the remote directory.
type Tracker struct {
	metrics *remoteMetrics
	op      string
	start   time.Time
}

// TrackRemote starts a tracker for the named remote operation.
func (m *Metrics) TrackRemote(op string) *Tracker {
	if m == nil || m.remote == nil {
		return &Tracker{op: op, start: time.Now()}
	}
	return &Tracker{metrics: m.remote, op: op, start: time.Now()}
}

// End records the outcome and duration, returning err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.op == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.op).Inc()
	}
	t.metrics.calls.WithLabelValues(t.op, status).Inc()
	t.metrics.duration.WithLabelValues(t.op).Observe(time.Since(t.start).Seconds())
	return err
}

func buildRemoteMetrics(registerer prometheus.Registerer) *remoteMetrics {
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdesk_remote_calls_total",
		Help: "Calls to the remote user directory partitioned by operation and status.",
	}, []string{"op", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdesk_remote_failures_total",
		Help: "Failed calls to the remote user directory.",
	}, []string{"op"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userdesk_remote_call_duration_seconds",
		Help:    "Duration in seconds of remote user directory calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	registerer.MustRegister(calls, failures, duration)
	return &remoteMetrics{calls: calls, failures: failures, duration: duration}
}
