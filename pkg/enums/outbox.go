package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateInvoice OutboxAggregateType = "invoice"
	AggregatePart    OutboxAggregateType = "part"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateInvoice,
	AggregatePart,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(value, validAggregateTypes, "aggregate type")
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventInvoicePaid            OutboxEventType = "invoice_paid"
	EventInvoicePaymentReminder OutboxEventType = "invoice_payment_reminder"
	EventInvoiceOverdue         OutboxEventType = "invoice_overdue"
	EventPartLowStock           OutboxEventType = "part_low_stock"
)

var validOutboxEventTypes = []OutboxEventType{
	EventInvoicePaid,
	EventInvoicePaymentReminder,
	EventInvoiceOverdue,
	EventPartLowStock,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(value, validOutboxEventTypes, "event type")
}

// OutboxDLQErrorReason records why the publisher abandoned an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
