package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox/payloads"
)

const topic = "bk-notification-events"

func newRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: topic})
	require.NoError(t, err)
	return reg
}

func envelope(t *testing.T, data json.RawMessage) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return raw
}

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := newRegistry(t)
	partID := uuid.New()
	data, err := json.Marshal(payloads.PartLowStockEvent{PartID: partID, PartName: "Brake pad", StockQuantity: 2, ReorderLevel: 5})
	require.NoError(t, err)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventPartLowStock,
		AggregateType: enums.AggregatePart,
		AggregateID:   partID,
		Payload:       envelope(t, data),
	})
	require.NoError(t, err)
	require.Equal(t, topic, resolved.Descriptor.Topic)
	payload, ok := resolved.Payload.(*payloads.PartLowStockEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	require.Equal(t, "Brake pad", payload.PartName)
	require.Equal(t, 1, resolved.Envelope.Version)
}

func TestResolveRejectsMalformedRows(t *testing.T) {
	reg := newRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType: "invoice_exploded", AggregateType: enums.AggregateInvoice,
			AggregateID: uuid.New(), Payload: envelope(t, json.RawMessage(`{}`)),
		},
		"wrong aggregate": {
			EventType: enums.EventInvoicePaid, AggregateType: enums.AggregatePart,
			AggregateID: uuid.New(), Payload: envelope(t, json.RawMessage(`{}`)),
		},
		"no aggregate id": {
			EventType: enums.EventInvoicePaid, AggregateType: enums.AggregateInvoice,
			Payload: envelope(t, json.RawMessage(`{}`)),
		},
		"null data": {
			EventType: enums.EventInvoiceOverdue, AggregateType: enums.AggregateInvoice,
			AggregateID: uuid.New(), Payload: envelope(t, json.RawMessage(`null`)),
		},
		"data of wrong shape": {
			EventType: enums.EventInvoicePaid, AggregateType: enums.AggregateInvoice,
			AggregateID: uuid.New(), Payload: envelope(t, json.RawMessage(`[1,2]`)),
		},
		"truncated envelope": {
			EventType: enums.EventInvoicePaid, AggregateType: enums.AggregateInvoice,
			AggregateID: uuid.New(), Payload: json.RawMessage(`{"data":`),
		},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			var nonRetryable NonRetryableError
			require.True(t, errors.As(err, &nonRetryable), "got %v", err)
		})
	}
}

func TestTopicsAreDistinct(t *testing.T) {
	require.Equal(t, []string{topic}, newRegistry(t).Topics())
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
}
