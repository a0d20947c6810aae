package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// Invoice is the billable aggregate root. Total is always derived from the
// items plus tax minus discount; Version increments on every write.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber string              `gorm:"column:invoice_number;not null;uniqueIndex:ux_invoices_number"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	JobID         *uuid.UUID          `gorm:"column:job_id;type:uuid"`
	IssueDate     time.Time           `gorm:"column:issue_date;not null"`
	DueDate       *time.Time          `gorm:"column:due_date"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax           decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	Discount      decimal.Decimal     `gorm:"column:discount;type:numeric(12,2);not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status        enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null"`
	Notes         *string             `gorm:"column:notes"`
	Version       int                 `gorm:"column:version;not null;default:1"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	RestockedAt   *time.Time          `gorm:"column:restocked_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID"`
}

func (Invoice) TableName() string { return "invoices" }

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// InvoiceItem is a line on an invoice. PartID is set when the line consumed stock.
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index"`
	Position    int             `gorm:"column:position;not null"`
	Description string          `gorm:"column:description;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	PartID      *uuid.UUID      `gorm:"column:part_id;type:uuid;index"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

func (i *InvoiceItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// InvoiceSequence is a named monotonically increasing counter.
type InvoiceSequence struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }
