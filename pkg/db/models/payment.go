package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// Payment is an immutable payment event appended to an invoice.
type Payment struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID  uuid.UUID           `gorm:"column:invoice_id;type:uuid;not null;index"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Method     enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Reference  *string             `gorm:"column:reference;uniqueIndex:ux_payments_reference"`
	Notes      *string             `gorm:"column:notes"`
	RecordedBy *uuid.UUID          `gorm:"column:recorded_by;type:uuid"`
	RecordedAt time.Time           `gorm:"column:recorded_at;not null"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now().UTC()
	}
	return nil
}

// PaymentAttempt is a gateway charge this backend initiated. Reference is
// the join key the processor echoes back in webhooks and verify responses.
type PaymentAttempt struct {
	ID              uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID       uuid.UUID                  `gorm:"column:invoice_id;type:uuid;not null;index"`
	Reference       string                     `gorm:"column:reference;not null;uniqueIndex:ux_payment_attempts_reference"`
	Provider        enums.GatewayProvider      `gorm:"column:provider;type:gateway_provider;not null"`
	Amount          decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency        string                     `gorm:"column:currency;not null"`
	PayerContact    string                     `gorm:"column:payer_contact;not null"`
	Status          enums.PaymentAttemptStatus `gorm:"column:status;type:payment_attempt_status;not null"`
	GatewayResponse *string                    `gorm:"column:gateway_response"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
	ResolvedAt      *time.Time                 `gorm:"column:resolved_at"`
}

func (PaymentAttempt) TableName() string { return "payment_attempts" }

func (p *PaymentAttempt) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// AppliedReference is the durable idempotency key for gateway confirmations.
// A row exists once a reference has been reconciled, whatever the outcome.
type AppliedReference struct {
	Reference string                 `gorm:"column:reference;primaryKey"`
	InvoiceID *uuid.UUID             `gorm:"column:invoice_id;type:uuid"`
	PaymentID *uuid.UUID             `gorm:"column:payment_id;type:uuid"`
	Outcome   enums.ReferenceOutcome `gorm:"column:outcome;type:reference_outcome;not null"`
	Detail    *string                `gorm:"column:detail"`
	Source    string                 `gorm:"column:source;not null"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (AppliedReference) TableName() string { return "applied_references" }
