package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/dbtest"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

func TestEmitEnvelopeCarriesRowID(t *testing.T) {
	conn := dbtest.New(t)
	svc := NewService(NewRepository(conn), nil)
	fixed := time.Date(2026, 4, 2, 9, 0, 0, 0, time.FixedZone("GMT+1", 3600))
	svc.now = func() time.Time { return fixed }

	invoiceID := uuid.New()
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventInvoiceOverdue,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoiceID,
			Data:          map[string]string{"invoiceNumber": "INV-0009"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var row models.OutboxEvent
	if err := conn.First(&row, "aggregate_id = ?", invoiceID).Error; err != nil {
		t.Fatalf("load row: %v", err)
	}
	env, err := DecodeEnvelope(row.Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.EventID != row.ID.String() {
		t.Fatalf("expected envelope id %s to equal row id %s", env.EventID, row.ID)
	}
	if env.Version != envelopeVersion || !env.OccurredAt.Equal(fixed) || env.OccurredAt.Location() != time.UTC {
		t.Fatalf("unexpected envelope header %+v", env)
	}
}

func TestEmitIfNotExistsQueuesOnce(t *testing.T) {
	conn := dbtest.New(t)
	svc := NewService(NewRepository(conn), nil)
	event := DomainEvent{
		EventType:     enums.EventInvoicePaid,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   uuid.New(),
		Data:          map[string]string{"status": "PAID"},
	}
	for i := 0; i < 2; i++ {
		if err := conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}); err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}
	if n := dbtest.Count(t, conn, &models.OutboxEvent{}); n != 1 {
		t.Fatalf("expected one invoice_paid row, got %d", n)
	}
}

func TestEmitRejectsBadEvents(t *testing.T) {
	conn := dbtest.New(t)
	svc := NewService(NewRepository(conn), nil)
	if err := svc.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatal("expected transaction required")
	}
	bad := DomainEvent{EventType: "shipped", AggregateType: enums.AggregateInvoice, AggregateID: uuid.New()}
	if err := svc.Emit(context.Background(), conn, bad); err == nil {
		t.Fatal("expected unknown event type error")
	}
	noID := DomainEvent{EventType: enums.EventPartLowStock, AggregateType: enums.AggregatePart}
	if err := svc.Emit(context.Background(), conn, noID); err == nil {
		t.Fatal("expected aggregate id error")
	}
}

func TestDecodeEnvelopeRejectsNullData(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"x","data":null}`)); err == nil {
		t.Fatal("expected null data rejected")
	}
	if _, err := DecodeEnvelope([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}
