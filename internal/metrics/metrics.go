// Package metrics holds the Prometheus collectors exported on /metrics.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Submissions     *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	Drafts          *prometheus.CounterVec
	QueueActions    *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	RecapToday      *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_submissions_total",
			Help: "Accepted attendance submissions by resolved status.",
		}, []string{"status"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_rejections_total",
			Help: "Rejected attendance submissions by kind.",
		}, []string{"kind"}),
		Drafts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_drafts_total",
			Help: "Parent notification drafts by text source.",
		}, []string{"source"}),
		QueueActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_queue_actions_total",
			Help: "Admin actions on queued notifications.",
		}, []string{"action"}),
		PersistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "state_persist_failures_total",
			Help: "Snapshot writes that failed, by store key.",
		}, []string{"key"}),
		RecapToday: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "attendance_recap_today",
			Help: "Students per status in the latest daily recap snapshot.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.Submissions, m.Rejections, m.Drafts, m.QueueActions, m.PersistFailures, m.RecapToday)
	return m
}

func (m *Metrics) Submitted(status string) {
	if m != nil {
		m.Submissions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) Rejected(kind string) {
	if m != nil {
		m.Rejections.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Drafted(source string) {
	if m != nil {
		m.Drafts.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) QueueAction(action string) {
	if m != nil {
		m.QueueActions.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) PersistFailed(key string) {
	if m != nil {
		m.PersistFailures.WithLabelValues(key).Inc()
	}
}

func (m *Metrics) SetRecapToday(status string, v float64) {
	if m != nil {
		m.RecapToday.WithLabelValues(status).Set(v)
	}
}
