package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part is a stocked inventory item. StockQuantity is only ever changed by
// the inventory ledger's conditional updates.
type Part struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Category      string          `gorm:"column:category;not null"`
	SKU           *string         `gorm:"column:sku"`
	Supplier      *string         `gorm:"column:supplier"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	ReorderLevel  int             `gorm:"column:reorder_level;not null;default:0"`
	UnitCost      decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2);not null"`
	SellingPrice  decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Part) TableName() string { return "parts" }

func (p *Part) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// LowStock reports whether the part is at or below its reorder level.
func (p Part) LowStock() bool {
	return p.StockQuantity <= p.ReorderLevel
}
