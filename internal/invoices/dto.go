package invoices

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	"github.com/plunoo/biskakenauto-sub000/pkg/pagination"
)

// ItemInput is one requested invoice line. PartID marks a stocked part
// whose quantity is reserved when the invoice is created.
type ItemInput struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	PartID      *uuid.UUID
}

// CreateInput is the validated payload for Create. Totals are never
// accepted from the caller.
type CreateInput struct {
	CustomerID uuid.UUID
	JobID      *uuid.UUID
	Items      []ItemInput
	Tax        decimal.Decimal
	Discount   decimal.Decimal
	DueDate    *time.Time
	Notes      *string
	Send       bool
	Actor      auth.Actor
}

// UpdateInput is a partial patch. Items are immutable after creation.
type UpdateInput struct {
	DueDate  *time.Time
	Notes    *string
	Tax      *decimal.Decimal
	Discount *decimal.Decimal
	Actor    auth.Actor
}

// ListFilter narrows List.
type ListFilter struct {
	Status     *enums.InvoiceStatus
	CustomerID *uuid.UUID
	Page       pagination.Params
}

// ItemDTO is the API shape of an invoice line.
type ItemDTO struct {
	ID          uuid.UUID  `json:"id"`
	Description string     `json:"description"`
	Quantity    int        `json:"quantity"`
	UnitPrice   string     `json:"unitPrice"`
	LineTotal   string     `json:"lineTotal"`
	PartID      *uuid.UUID `json:"partId,omitempty"`
}

// PaymentDTO is the API shape of a recorded payment.
type PaymentDTO struct {
	ID         uuid.UUID           `json:"id"`
	Amount     string              `json:"amount"`
	Method     enums.PaymentMethod `json:"method"`
	Reference  *string             `json:"reference,omitempty"`
	Notes      *string             `json:"notes,omitempty"`
	RecordedAt time.Time           `json:"recordedAt"`
}

// InvoiceDTO is the API shape of an invoice with its derived balance.
type InvoiceDTO struct {
	ID            uuid.UUID           `json:"id"`
	InvoiceNumber string              `json:"invoiceNumber"`
	CustomerID    uuid.UUID           `json:"customerId"`
	JobID         *uuid.UUID          `json:"jobId,omitempty"`
	IssueDate     time.Time           `json:"issueDate"`
	DueDate       *time.Time          `json:"dueDate,omitempty"`
	Subtotal      string              `json:"subtotal"`
	Tax           string              `json:"tax"`
	Discount      string              `json:"discount"`
	Total         string              `json:"total"`
	TotalPaid     string              `json:"totalPaid"`
	Outstanding   string              `json:"outstanding"`
	Status        enums.InvoiceStatus `json:"status"`
	Notes         *string             `json:"notes,omitempty"`
	Version       int                 `json:"version"`
	PaidAt        *time.Time          `json:"paidAt,omitempty"`
	CancelledAt   *time.Time          `json:"cancelledAt,omitempty"`
	RestockedAt   *time.Time          `json:"restockedAt,omitempty"`
	Items         []ItemDTO           `json:"items"`
	Payments      []PaymentDTO        `json:"payments"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// EventDTO is one entry of an invoice's audit trail.
type EventDTO struct {
	ID          uuid.UUID              `json:"id"`
	Type        enums.InvoiceEventType `json:"type"`
	ActorUserID *uuid.UUID             `json:"actorUserId,omitempty"`
	Amount      *string                `json:"amount,omitempty"`
	Metadata    json.RawMessage        `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}

// ListResult is one page of invoices.
type ListResult struct {
	Invoices   []InvoiceDTO `json:"invoices"`
	NextCursor string       `json:"nextCursor,omitempty"`
}

// ToDTO renders an invoice with preloaded items and payments.
func ToDTO(inv models.Invoice) InvoiceDTO {
	paid := SumPayments(inv.Payments)
	dto := InvoiceDTO{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		JobID:         inv.JobID,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Subtotal:      inv.Subtotal.StringFixed(2),
		Tax:           inv.Tax.StringFixed(2),
		Discount:      inv.Discount.StringFixed(2),
		Total:         inv.Total.StringFixed(2),
		TotalPaid:     paid.StringFixed(2),
		Outstanding:   Outstanding(inv.Total, paid).StringFixed(2),
		Status:        inv.Status,
		Notes:         inv.Notes,
		Version:       inv.Version,
		PaidAt:        inv.PaidAt,
		CancelledAt:   inv.CancelledAt,
		RestockedAt:   inv.RestockedAt,
		Items:         make([]ItemDTO, 0, len(inv.Items)),
		Payments:      make([]PaymentDTO, 0, len(inv.Payments)),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
	for _, item := range inv.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			LineTotal:   item.LineTotal.StringFixed(2),
			PartID:      item.PartID,
		})
	}
	for _, p := range inv.Payments {
		dto.Payments = append(dto.Payments, ToPaymentDTO(p))
	}
	return dto
}

// ToPaymentDTO renders a payment row.
func ToPaymentDTO(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:         p.ID,
		Amount:     p.Amount.StringFixed(2),
		Method:     p.Method,
		Reference:  p.Reference,
		Notes:      p.Notes,
		RecordedAt: p.RecordedAt,
	}
}

func ToEventDTO(e models.InvoiceEvent) EventDTO {
	dto := EventDTO{
		ID:          e.ID,
		Type:        e.Type,
		ActorUserID: e.ActorUserID,
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
	if e.Amount != nil {
		amount := e.Amount.StringFixed(2)
		dto.Amount = &amount
	}
	return dto
}
