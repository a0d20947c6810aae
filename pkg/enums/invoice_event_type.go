package enums

import "slices"

// InvoiceEventType maps to the invoice_event_type enum in Postgres.
type InvoiceEventType string

const (
	InvoiceEventCreated         InvoiceEventType = "invoice_created"
	InvoiceEventUpdated         InvoiceEventType = "invoice_updated"
	InvoiceEventSent            InvoiceEventType = "invoice_sent"
	InvoiceEventPaymentRecorded InvoiceEventType = "payment_recorded"
	InvoiceEventPaid            InvoiceEventType = "invoice_paid"
	InvoiceEventOverdue         InvoiceEventType = "invoice_overdue"
	InvoiceEventCancelled       InvoiceEventType = "invoice_cancelled"
	InvoiceEventRestocked       InvoiceEventType = "invoice_restocked"
	InvoiceEventReminderSent    InvoiceEventType = "reminder_sent"
)

var validInvoiceEventTypes = []InvoiceEventType{
	InvoiceEventCreated,
	InvoiceEventUpdated,
	InvoiceEventSent,
	InvoiceEventPaymentRecorded,
	InvoiceEventPaid,
	InvoiceEventOverdue,
	InvoiceEventCancelled,
	InvoiceEventRestocked,
	InvoiceEventReminderSent,
}

// String implements fmt.Stringer.
func (i InvoiceEventType) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InvoiceEventType.
func (i InvoiceEventType) IsValid() bool {
	return slices.Contains(validInvoiceEventTypes, i)
}

// ParseInvoiceEventType converts raw input into a InvoiceEventType.
func ParseInvoiceEventType(value string) (InvoiceEventType, error) {
	return parse(value, validInvoiceEventTypes, "invoice event type")
}
