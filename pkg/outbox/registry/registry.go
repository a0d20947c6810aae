// Package registry knows which outbox event types exist, which aggregate
// each belongs to, which topic carries it, and how to decode its payload.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is a validated row with its envelope and typed payload.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

// route describes one event whose payload decodes into *T.
func route[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// NewEventRegistry routes every known event to the notification topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := cfg.NotificationTopic
	if topic == "" {
		return nil, errors.New("notification topic is required")
	}
	r := &EventRegistry{routes: map[enums.OutboxEventType]EventDescriptor{}}
	for _, d := range []EventDescriptor{
		route[payloads.InvoicePaidEvent](enums.EventInvoicePaid, enums.AggregateInvoice, topic),
		route[payloads.InvoicePaymentReminderEvent](enums.EventInvoicePaymentReminder, enums.AggregateInvoice, topic),
		route[payloads.InvoiceOverdueEvent](enums.EventInvoiceOverdue, enums.AggregateInvoice, topic),
		route[payloads.PartLowStockEvent](enums.EventPartLowStock, enums.AggregatePart, topic),
	} {
		r.routes[d.EventType] = d
	}
	return r, nil
}

// Resolve checks the row against its route and decodes the payload. Every
// failure is non-retryable: a malformed row stays malformed.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	d, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	case d.AggregateType != event.AggregateType:
		return nil, NewNonRetryableError(fmt.Errorf("%s belongs to %s aggregates, row says %s", event.EventType, d.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload, err := d.decode(env.Data)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Descriptor: d, Envelope: env, Payload: payload}, nil
}

// Topics lists the distinct topics the registry routes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range r.routes {
		if !seen[d.Topic] {
			seen[d.Topic] = true
			out = append(out, d.Topic)
		}
	}
	return out
}
