package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// CreatePartInput holds the validated payload to create a part.
type CreatePartInput struct {
	Name          string
	Category      string
	SKU           *string
	Supplier      *string
	StockQuantity int
	ReorderLevel  int
	UnitCost      decimal.Decimal
	SellingPrice  decimal.Decimal
	ActorUserID   *uuid.UUID
}

// UpdatePartInput holds optional part mutations. Stock is not writable here.
type UpdatePartInput struct {
	Name         *string
	Category     *string
	SKU          *string
	Supplier     *string
	ReorderLevel *int
	UnitCost     *decimal.Decimal
	SellingPrice *decimal.Decimal
}

// AdjustInput is an administrative stock adjustment.
type AdjustInput struct {
	PartID      uuid.UUID
	Quantity    int
	Mode        enums.StockAdjustMode
	Reason      *string
	ActorUserID *uuid.UUID
}

// ReservationRequest decrements stock for one invoice line.
type ReservationRequest struct {
	PartID      uuid.UUID
	Quantity    int
	InvoiceID   *uuid.UUID
	ActorUserID *uuid.UUID
}

// RestockRequest returns previously reserved stock.
type RestockRequest struct {
	PartID      uuid.UUID
	Quantity    int
	InvoiceID   *uuid.UUID
	Reason      *string
	ActorUserID *uuid.UUID
}

// ListFilter narrows ListParts.
type ListFilter struct {
	Category     string
	LowStockOnly bool
}

// PartDTO is the API shape of a part.
type PartDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	SKU           *string   `json:"sku,omitempty"`
	Supplier      *string   `json:"supplier,omitempty"`
	StockQuantity int       `json:"stockQuantity"`
	ReorderLevel  int       `json:"reorderLevel"`
	UnitCost      string    `json:"unitCost"`
	SellingPrice  string    `json:"sellingPrice"`
	LowStock      bool      `json:"lowStock"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AdjustResult reports the stock level around an adjustment.
type AdjustResult struct {
	Part           PartDTO `json:"part"`
	QuantityBefore int     `json:"quantityBefore"`
	QuantityAfter  int     `json:"quantityAfter"`
}

func toPartDTO(p models.Part) PartDTO {
	return PartDTO{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		SKU:           p.SKU,
		Supplier:      p.Supplier,
		StockQuantity: p.StockQuantity,
		ReorderLevel:  p.ReorderLevel,
		UnitCost:      p.UnitCost.StringFixed(2),
		SellingPrice:  p.SellingPrice.StringFixed(2),
		LowStock:      p.LowStock(),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
