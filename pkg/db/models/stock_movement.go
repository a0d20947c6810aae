package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// StockMovement is an append-only audit row for every stock change.
type StockMovement struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	PartID        uuid.UUID               `gorm:"column:part_id;type:uuid;not null;index"`
	Kind          enums.StockMovementKind `gorm:"column:kind;type:stock_movement_kind;not null"`
	QuantityDelta int                     `gorm:"column:quantity_delta;not null"`
	QuantityAfter int                     `gorm:"column:quantity_after;not null"`
	InvoiceID     *uuid.UUID              `gorm:"column:invoice_id;type:uuid"`
	Reason        *string                 `gorm:"column:reason"`
	ActorUserID   *uuid.UUID              `gorm:"column:actor_user_id;type:uuid"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
