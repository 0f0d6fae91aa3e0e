// Package metrics exposes Prometheus collectors for session activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trivia"

// Metrics is safe to use as a nil pointer, which records nothing.
type Metrics struct {
	sessionsStarted  *prometheus.CounterVec
	sessionsFinished *prometheus.CounterVec
	activeSessions   *prometheus.GaugeVec
	submissions      *prometheus.CounterVec
	accuracy         *prometheus.HistogramVec
}

// New registers the collectors with reg. Use prometheus.DefaultRegisterer to
// serve them from promhttp.Handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		sessionsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions initialized or restarted, by mode.",
		}, []string{"mode"}),
		sessionsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Sessions that reached their end state, by mode and reason.",
		}, []string{"mode", "reason"}),
		activeSessions: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}, []string{"mode"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Graded submissions, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		accuracy: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_accuracy_ratio",
			Help:      "Fraction of points earned in finished sessions.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"mode"}),
	}
}

func (m *Metrics) SessionOpened(mode string) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(mode).Inc()
}

func (m *Metrics) SessionClosed(mode string) {
	if m == nil {
		return
	}
	m.activeSessions.WithLabelValues(mode).Dec()
}

func (m *Metrics) SessionStarted(mode string) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(mode).Inc()
}

// SessionFinished counts a finished session and observes its accuracy.
func (m *Metrics) SessionFinished(mode, reason string, accuracy float64) {
	if m == nil {
		return
	}
	m.sessionsFinished.WithLabelValues(mode, reason).Inc()
	m.accuracy.WithLabelValues(mode).Observe(accuracy)
}

func (m *Metrics) Submission(mode, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(mode, outcome).Inc()
}
