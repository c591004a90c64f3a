package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is what the monetization core reports through.
type Recorder interface {
	WebhookEvent(eventType, result string)
	CheckoutSession(purpose, result string)
	EntitlementEvaluation(result string)
	ProviderCall(op, result string, d time.Duration)
}

// Noop discards everything.
type Noop struct{}

func (Noop) WebhookEvent(string, string) {}
func (Noop) CheckoutSession(string, string) {}
func (Noop) EntitlementEvaluation(string) {}
func (Noop) ProviderCall(string, string, time.Duration) {}

// Prometheus implements Recorder on a caller-supplied registry.
type Prometheus struct {
	webhookEvents    *prometheus.CounterVec
	checkoutSessions *prometheus.CounterVec
	entitlements     *prometheus.CounterVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
}

func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	factory := promauto.With(reg)

	return &Prometheus{
		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Payment provider webhook events by type and result.",
		}, []string{"event_type", "result"}),

		checkoutSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "checkout_sessions_total",
			Help:      "Checkout session requests by purpose and result.",
		}, []string{"purpose", "result"}),

		entitlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "entitlement_evaluations_total",
			Help:      "Entitlement evaluations by result.",
		}, []string{"result"}),

		providerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "provider_calls_total",
			Help:      "Payment provider API calls by operation and result.",
		}, []string{"op", "result"}),

		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "provider_call_duration_seconds",
			Help:      "Duration of payment provider API calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

func (m *Prometheus) WebhookEvent(eventType, result string) {
	m.webhookEvents.WithLabelValues(eventType, result).Inc()
}

func (m *Prometheus) CheckoutSession(purpose, result string) {
	m.checkoutSessions.WithLabelValues(purpose, result).Inc()
}

func (m *Prometheus) EntitlementEvaluation(result string) {
	m.entitlements.WithLabelValues(result).Inc()
}

func (m *Prometheus) ProviderCall(op, result string, d time.Duration) {
	m.providerCalls.WithLabelValues(op, result).Inc()
	m.providerDuration.WithLabelValues(op).Observe(d.Seconds())
}
