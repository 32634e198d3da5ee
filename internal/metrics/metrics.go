// Package metrics exposes Prometheus collectors for the recording engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. All collectors are
// registered on an instance-local registry so tests can create as many
// instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	CapturesStarted   *prometheus.CounterVec
	CapturesCompleted *prometheus.CounterVec
	CapturesFailed    *prometheus.CounterVec

	RegisteredJobs prometheus.Gauge

	RecordingsSwept prometheus.Counter
	SweepErrors     prometheus.Counter
	SweepDuration   prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CapturesStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aircheck_captures_started_total",
			Help: "Capture tasks started, by station",
		}, []string{"station"}),

		CapturesCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aircheck_captures_completed_total",
			Help: "Capture tasks that produced a recording, by station",
		}, []string{"station"}),

		CapturesFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aircheck_captures_failed_total",
			Help: "Capture tasks that failed, by station",
		}, []string{"station"}),

		RegisteredJobs: f.NewGauge(prometheus.GaugeOpts{
			Name: "aircheck_registered_jobs",
			Help: "Live cron registrations held by the scheduler",
		}),

		RecordingsSwept: f.NewCounter(prometheus.CounterOpts{
			Name: "aircheck_recordings_swept_total",
			Help: "Expired recordings deleted by the retention sweeper",
		}),

		SweepErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "aircheck_sweep_errors_total",
			Help: "Recordings skipped during a sweep because deletion failed",
		}),

		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aircheck_sweep_duration_seconds",
			Help:    "Wall time of one retention sweep cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Registry returns the instance-local registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
