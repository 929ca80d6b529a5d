// Package metrics provides Prometheus metrics collection for Stamply.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for Stamply.
type Collector struct {
	// Request metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Entitlement metrics
	EntitlementChecks *prometheus.CounterVec

	// Billing metrics
	CheckoutSessions *prometheus.CounterVec
	PlanChanges      *prometheus.CounterVec
	UsageReports     *prometheus.CounterVec

	// Webhook metrics
	WebhookEvents   *prometheus.CounterVec
	WebhookFailures *prometheus.CounterVec

	// Notification cycle metrics
	NotificationsSent prometheus.Counter
	CycleResets       prometheus.Counter

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newCollector(promauto.With(reg))
}

func newCollector(factory promauto.Factory) *Collector {
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stamply",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "stamply",
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		EntitlementChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "entitlement_checks_total",
				Help:      "Total entitlement decisions by feature, action, and outcome",
			},
			[]string{"feature", "action", "allowed"},
		),

		CheckoutSessions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "checkout_sessions_total",
				Help:      "Total checkout sessions created by target tier",
			},
			[]string{"tier"},
		),
		PlanChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "plan_changes_total",
				Help:      "Total scheduled plan changes by target tier and kind",
			},
			[]string{"tier", "kind"},
		),
		UsageReports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "usage_reports_total",
				Help:      "Total metered usage reports by outcome",
			},
			[]string{"outcome"},
		),

		WebhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "webhook_events_total",
				Help:      "Total webhook events received by type",
			},
			[]string{"type"},
		),
		WebhookFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "webhook_failures_total",
				Help:      "Total webhook processing failures by reason",
			},
			[]string{"reason"},
		),

		NotificationsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "notifications_sent_total",
				Help:      "Total push notifications sent",
			},
		),
		CycleResets: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "cycle_resets_total",
				Help:      "Total monthly notification counter resets performed",
			},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "config_reloads_total",
				Help:      "Total successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "stamply",
				Name:      "config_reload_errors_total",
				Help:      "Total failed config reload attempts",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "stamply",
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of the last successful config reload",
			},
		),
	}
}
