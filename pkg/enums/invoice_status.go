package enums

import "slices"

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

var validInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusCancelled,
}

// String implements fmt.Stringer.
func (i InvoiceStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known InvoiceStatus.
func (i InvoiceStatus) IsValid() bool {
	return slices.Contains(validInvoiceStatuses, i)
}

// ParseInvoiceStatus converts raw input into a InvoiceStatus.
func ParseInvoiceStatus(value string) (InvoiceStatus, error) {
	return parse(value, validInvoiceStatuses, "invoice status")
}

// Cancellable reports whether an invoice in this state may be cancelled.
func (i InvoiceStatus) Cancellable() bool {
	return i == InvoiceStatusDraft || i == InvoiceStatusSent
}

// AcceptsPayments reports whether payments may still be recorded.
func (i InvoiceStatus) AcceptsPayments() bool {
	switch i {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusOverdue:
		return true
	}
	return false
}
