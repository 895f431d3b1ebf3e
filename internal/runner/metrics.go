package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors updated by every run.
type Metrics struct {
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	persists    *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

// NewMetrics registers the run collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notionsync",
			Name:      "runs_total",
			Help:      "Sync runs by trigger and status (success, failure, busy).",
		}, []string{"trigger", "status"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "notionsync",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a sync run including persistence.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		persists: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notionsync",
			Name:      "persist_total",
			Help:      "Persistence attempts by outcome.",
		}, []string{"outcome"}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "notionsync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run whose procedure and persistence both succeeded.",
		}),
	}
}

func (m *Metrics) observe(res *Result) {
	if m == nil {
		return
	}
	status := "success"
	if !res.OK() {
		status = "failure"
	}
	m.runs.WithLabelValues(string(res.Trigger), status).Inc()
	m.duration.Observe(res.Duration.Seconds())
	if res.PersistErr != nil {
		m.persists.WithLabelValues("error").Inc()
	} else {
		m.persists.WithLabelValues(res.Persist.Outcome.String()).Inc()
	}
	if res.OK() {
		m.lastSuccess.Set(float64(res.StartedAt.Add(res.Duration).Unix()))
	}
}

func (m *Metrics) busy(trigger Trigger) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(trigger), "busy").Inc()
}
