package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "appointments"

// Metrics holds the Prometheus collectors for the booking service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Bookings counts booking submissions by result: created, conflict, invalid, error.
	Bookings *prometheus.CounterVec

	// Lookups counts status lookups by result: found, not_found.
	Lookups *prometheus.CounterVec

	// Logins counts operator login attempts by result: success, failure.
	Logins *prometheus.CounterVec

	// AdminActions counts admin mutations by action: update_status, delete.
	AdminActions *prometheus.CounterVec

	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Bookings: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_total",
				Help:      "Booking submissions by result",
			},
			[]string{"result"},
		),
		Lookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_lookups_total",
				Help:      "Status lookups by result",
			},
			[]string{"result"},
		),
		Logins: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_logins_total",
				Help:      "Operator login attempts by result",
			},
			[]string{"result"},
		),
		AdminActions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_actions_total",
				Help:      "Admin mutations by action",
			},
			[]string{"action"},
		),
		OutboxPublished: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_events_published_total",
				Help:      "Outbox events written to Kafka",
			},
		),
		OutboxFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_publish_failures_total",
				Help:      "Failed outbox publish batches",
			},
		),
	}
}

func (m *Metrics) IncBooking(result string) {
	if m == nil {
		return
	}
	m.Bookings.WithLabelValues(result).Inc()
}

func (m *Metrics) IncLookup(result string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) IncLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

func (m *Metrics) IncAdminAction(action string) {
	if m == nil {
		return
	}
	m.AdminActions.WithLabelValues(action).Inc()
}

func (m *Metrics) AddOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncOutboxFailure() {
	if m == nil {
		return
	}
	m.OutboxFailures.Inc()
}
