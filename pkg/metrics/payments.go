package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics counts payment recording outcomes.
type PaymentMetrics struct {
	recorded *prometheus.CounterVec
}

// NewPaymentMetrics registers payments_recorded_total on reg.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Payments recorded against invoices, by method and outcome.",
	}, []string{"method", "outcome"})
	reg.MustRegister(recorded)
	return &PaymentMetrics{recorded: recorded}
}

// IncRecorded counts one recording attempt. outcome is "applied" or the
// rejection reason.
func (p *PaymentMetrics) IncRecorded(method, outcome string) {
	if p == nil || p.recorded == nil {
		return
	}
	p.recorded.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

// WebhookMetrics counts processed gateway webhook events.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook_events_total on reg.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Gateway webhook deliveries, by event type and outcome.",
	}, []string{"event", "outcome"})
	reg.MustRegister(events)
	return &WebhookMetrics{events: events}
}

func (w *WebhookMetrics) IncEvent(event, outcome string) {
	if w == nil || w.events == nil {
		return
	}
	w.events.WithLabelValues(normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

// GatewayMetrics times outbound payment processor calls.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
}

// NewGatewayMetrics registers gateway_request_duration_seconds on reg.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Latency of payment gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	reg.MustRegister(duration)
	return &GatewayMetrics{duration: duration}
}

func (g *GatewayMetrics) Observe(operation, outcome string, d time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Observe(d.Seconds())
}
