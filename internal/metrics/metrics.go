package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymops_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymops_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymops_session_transitions_total",
			Help: "Training session state transitions by target state",
		},
		[]string{"to"},
	)

	CreditConsumptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymops_credit_consumptions_total",
			Help: "Credit consumption attempts by result",
		},
		[]string{"result"},
	)

	RemindersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymops_reminders_total",
			Help: "Reminder notifications by sweep kind and outcome",
		},
		[]string{"kind", "status"},
	)

	ReminderSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gymops_reminder_sweep_duration_seconds",
			Help:    "Duration of a full reminder sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymops_notifications_total",
			Help: "Notifications handed to the email queue",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymops_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordSessionTransition(to string) {
	SessionTransitionsTotal.WithLabelValues(to).Inc()
}

func RecordCreditConsumption(result string) {
	CreditConsumptionsTotal.WithLabelValues(result).Inc()
}

func RecordReminder(kind, status string) {
	RemindersTotal.WithLabelValues(kind, status).Inc()
}

func RecordNotification(notificationType, status string) {
	NotificationsTotal.WithLabelValues(notificationType, status).Inc()
}
