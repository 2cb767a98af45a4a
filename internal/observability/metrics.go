package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	availableSessions prometheus.Gauge
	currentSession    prometheus.Gauge

	operationTotal    *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	hookCallsTotal *prometheus.CounterVec
	flushBytes     prometheus.Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			availableSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "sessions_available",
					Help: "Number of session files found in the sessions directory.",
				},
			),
			currentSession: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "session_current_open",
					Help: "Whether a session is currently open (1 open, 0 none).",
				},
			),
			operationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "session_operations_total",
					Help: "Total session operations by operation and status.",
				},
				[]string{"op", "status"},
			),
			operationDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "session_operation_duration_seconds",
					Help:    "Session operation duration in seconds by operation.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"op"},
			),
			hookCallsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "session_hook_calls_total",
					Help: "Total load/save hook invocations by event.",
				},
				[]string{"event"},
			),
			flushBytes: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "session_flush_bytes",
					Help:    "Size in bytes of session files after a successful flush.",
					Buckets: prometheus.ExponentialBuckets(256, 4, 8),
				},
			),
		}

		prometheus.MustRegister(
			m.availableSessions,
			m.currentSession,
			m.operationTotal,
			m.operationDuration,
			m.hookCallsTotal,
			m.flushBytes,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetAvailableSessions(count int) {
	m := getMetrics()
	m.availableSessions.Set(float64(count))
}

func SetCurrentSessionOpen(open bool) {
	m := getMetrics()
	value := 0.0
	if open {
		value = 1.0
	}
	m.currentSession.Set(value)
}

func RecordSessionOperation(op string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.operationTotal.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func RecordHookCalls(event string, calls int) {
	if calls == 0 {
		return
	}
	m := getMetrics()
	m.hookCallsTotal.WithLabelValues(event).Add(float64(calls))
}

func RecordFlushSize(bytes int64) {
	m := getMetrics()
	m.flushBytes.Observe(float64(bytes))
}
