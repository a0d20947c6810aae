package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts relay outcomes for outbox rows.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	backlog   prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the relay, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_batch_size",
		Help: "Rows claimed by the most recent relay batch.",
	})
	reg.MustRegister(published, backlog)
	return &OutboxMetrics{published: published, backlog: backlog}
}

func (o *OutboxMetrics) IncOutcome(eventType, outcome string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (o *OutboxMetrics) SetBatch(n int) {
	if o == nil || o.backlog == nil {
		return
	}
	o.backlog.Set(float64(n))
}
