package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// InvoiceEvent records an immutable lifecycle event for an invoice.
type InvoiceEvent struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID   uuid.UUID              `gorm:"column:invoice_id;type:uuid;not null;index"`
	ActorUserID *uuid.UUID             `gorm:"column:actor_user_id;type:uuid"`
	Type        enums.InvoiceEventType `gorm:"column:type;type:invoice_event_type;not null"`
	Amount      *decimal.Decimal       `gorm:"column:amount;type:numeric(12,2)"`
	Metadata    json.RawMessage        `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (InvoiceEvent) TableName() string { return "invoice_events" }

func (e *InvoiceEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
