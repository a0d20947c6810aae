package enums

import "slices"

// StockMovementKind classifies rows in the stock_movements audit trail.
type StockMovementKind string

const (
	StockMovementInitial      StockMovementKind = "INITIAL"
	StockMovementReserve      StockMovementKind = "RESERVE"
	StockMovementRestock      StockMovementKind = "RESTOCK"
	StockMovementAdjustAdd    StockMovementKind = "ADJUST_ADD"
	StockMovementAdjustRemove StockMovementKind = "ADJUST_REMOVE"
	StockMovementAdjustSet    StockMovementKind = "ADJUST_SET"
)

var validStockMovementKinds = []StockMovementKind{
	StockMovementInitial,
	StockMovementReserve,
	StockMovementRestock,
	StockMovementAdjustAdd,
	StockMovementAdjustRemove,
	StockMovementAdjustSet,
}

// String implements fmt.Stringer.
func (s StockMovementKind) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockMovementKind.
func (s StockMovementKind) IsValid() bool {
	return slices.Contains(validStockMovementKinds, s)
}

// ParseStockMovementKind converts raw input into a StockMovementKind.
func ParseStockMovementKind(value string) (StockMovementKind, error) {
	return parse(value, validStockMovementKinds, "stock movement kind")
}
