package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks question generation and entitlement outcomes.
type Metrics struct {
	QuestionsGenerated *prometheus.CounterVec
	QuestionsDenied    *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	WebhookEvents      *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
}

// NewMetrics registers the application metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		QuestionsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "askboyfriend_questions_generated_total",
			Help: "Total questions generated, by category.",
		}, []string{"category"}),

		QuestionsDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "askboyfriend_questions_denied_total",
			Help: "Total generation requests denied, by reason.",
		}, []string{"reason"}),

		GenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "askboyfriend_generation_duration_seconds",
			Help:    "Latency of generation provider calls.",
			Buckets: prometheus.DefBuckets,
		}),

		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "askboyfriend_stripe_webhook_events_total",
			Help: "Total Stripe webhook events received, by type.",
		}, []string{"type"}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "askboyfriend_active_sessions",
			Help: "Currently hydrated user sessions.",
		}),
	}
}
