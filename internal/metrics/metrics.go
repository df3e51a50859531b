// Package metrics holds the Prometheus collectors shared by the services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SyncRecords counts reconciled orders by resulting status.
	SyncRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lgl",
		Name:      "sync_records_total",
		Help:      "Orders reconciled, by resulting sync status.",
	}, []string{"status"})

	// EmailsBlocked counts outgoing emails suppressed by the blocking gate.
	EmailsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lgl",
		Name:      "emails_blocked_total",
		Help:      "Outgoing emails suppressed by the blocking gate.",
	})

	// RenewalReminders counts reminder emails dispatched by interval.
	RenewalReminders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lgl",
		Name:      "renewal_reminders_total",
		Help:      "Renewal reminders dispatched, by interval in days.",
	}, []string{"interval"})

	// RenewalSkips counts members skipped during a scheduling pass.
	RenewalSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lgl",
		Name:      "renewal_skips_total",
		Help:      "Members skipped during renewal passes, by reason.",
	}, []string{"reason"})

	// OrderEvents counts store order events handled, by type and outcome.
	OrderEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lgl",
		Name:      "order_events_total",
		Help:      "Store order events handled, by type and outcome.",
	}, []string{"type", "outcome"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
