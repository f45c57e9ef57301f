package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for delivery and artifact generation health.
var (
	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capwire_webhook_deliveries_total",
			Help: "Webhook delivery attempts by outcome",
		},
		[]string{"status"},
	)

	WebhookDeliveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "capwire_webhook_delivery_duration_seconds",
			Help:    "Duration of webhook delivery attempts",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArtifactsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capwire_artifacts_generated_total",
			Help: "Multimedia artifacts by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	AlertsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "capwire_alerts_published_total",
			Help: "Total alerts transitioned to published",
		},
	)
)

// Register registers all Prometheus metrics.
func Register() {
	prometheus.MustRegister(WebhookDeliveriesTotal)
	prometheus.MustRegister(WebhookDeliveryDuration)
	prometheus.MustRegister(ArtifactsGeneratedTotal)
	prometheus.MustRegister(AlertsPublishedTotal)
}
