package payloads

import (
	"time"

	"github.com/google/uuid"
)

// CustomerContact is the notification target for invoice events.
type CustomerContact struct {
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email,omitempty"`
}

// InvoicePaidEvent is emitted exactly once, when an invoice first reaches PAID.
type InvoicePaidEvent struct {
	InvoiceID     uuid.UUID       `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Customer      CustomerContact `json:"customer"`
	Total         string          `json:"total"`
	TotalPaid     string          `json:"totalPaid"`
	PaidAt        time.Time       `json:"paidAt"`
}

// InvoicePaymentReminderEvent asks the notification service to chase an
// outstanding balance.
type InvoicePaymentReminderEvent struct {
	InvoiceID     uuid.UUID       `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Customer      CustomerContact `json:"customer"`
	Total         string          `json:"total"`
	Outstanding   string          `json:"outstanding"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
}

// InvoiceOverdueEvent is emitted when the cron job moves an invoice to OVERDUE.
type InvoiceOverdueEvent struct {
	InvoiceID     uuid.UUID       `json:"invoiceId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Customer      CustomerContact `json:"customer"`
	Outstanding   string          `json:"outstanding"`
	DueDate       time.Time       `json:"dueDate"`
}

// PartLowStockEvent is emitted when a reservation drops a part to or below
// its reorder level.
type PartLowStockEvent struct {
	PartID        uuid.UUID `json:"partId"`
	PartName      string    `json:"partName"`
	StockQuantity int       `json:"stockQuantity"`
	ReorderLevel  int       `json:"reorderLevel"`
}
