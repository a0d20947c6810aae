package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/internal/invoices"
	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// RecordInput is a single payment against an invoice.
type RecordInput struct {
	InvoiceID  uuid.UUID
	Amount     decimal.Decimal
	Method     enums.PaymentMethod
	Reference  *string
	Notes      *string
	RecordedAt *time.Time
	Actor      auth.Actor
}

// RecordResult reports the payment and the balance it left behind.
type RecordResult struct {
	Payment     invoices.PaymentDTO `json:"payment"`
	NewStatus   enums.InvoiceStatus `json:"newStatus"`
	TotalPaid   string              `json:"totalPaid"`
	Outstanding string              `json:"outstanding"`
}
