package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the lobby's prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	ReadyChecks    prometheus.Counter
	Launches       prometheus.Counter
	Aborts         prometheus.Counter
	HandoffErrors  prometheus.Counter
	ConnectedUsers prometheus.Gauge
	Available      *prometheus.GaugeVec
	Captains       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		ReadyChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lobby",
			Name:      "ready_checks_opened_total",
			Help:      "Ready-check windows opened.",
		}),
		Launches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lobby",
			Name:      "launches_total",
			Help:      "Ready checks that ended in a launch.",
		}),
		Aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lobby",
			Name:      "aborts_total",
			Help:      "Ready checks that ended in an abort.",
		}),
		HandoffErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lobby",
			Name:      "roster_handoff_errors_total",
			Help:      "Launched rosters the draft hand-off failed to accept.",
		}),
		ConnectedUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lobby",
			Name:      "connected_users",
			Help:      "Users with at least one live connection.",
		}),
		Available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lobby",
			Name:      "available_users",
			Help:      "Users available per role.",
		}, []string{"role"}),
		Captains: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lobby",
			Name:      "available_captains",
			Help:      "Users available as captain.",
		}),
	}
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.ReadyChecks, m.Launches, m.Aborts, m.HandoffErrors, m.ConnectedUsers, m.Available, m.Captains)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
