// Package metrics exposes the bot's operational counters for Prometheus
// scraping on the ops HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set holds every metric the bot publishes.
type Set struct {
	ScrapeCycles         *prometheus.CounterVec
	NotificationsSent    prometheus.Counter
	NotificationFailures prometheus.Counter
	NextWakeUnix         prometheus.Gauge
}

// New creates the metric set and registers it with reg.
func New(reg prometheus.Registerer) *Set {
	s := &Set{
		ScrapeCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "egslistener_scrape_cycles_total",
			Help: "Completed scrape cycles by decision outcome.",
		}, []string{"result"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "egslistener_notifications_sent_total",
			Help: "Messages successfully delivered to subscribers.",
		}),
		NotificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "egslistener_notification_failures_total",
			Help: "Per-recipient delivery failures.",
		}),
		NextWakeUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "egslistener_next_wake_timestamp_seconds",
			Help: "Unix time of the currently armed scrape wake.",
		}),
	}
	reg.MustRegister(s.ScrapeCycles, s.NotificationsSent, s.NotificationFailures, s.NextWakeUnix)
	return s
}
