package enums

import "slices"

// StockAdjustMode selects how an administrative adjustment applies its quantity.
type StockAdjustMode string

const (
	StockAdjustAdd    StockAdjustMode = "ADD"
	StockAdjustRemove StockAdjustMode = "REMOVE"
	StockAdjustSet    StockAdjustMode = "SET"
)

var validStockAdjustModes = []StockAdjustMode{
	StockAdjustAdd,
	StockAdjustRemove,
	StockAdjustSet,
}

// String implements fmt.Stringer.
func (s StockAdjustMode) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockAdjustMode.
func (s StockAdjustMode) IsValid() bool {
	return slices.Contains(validStockAdjustModes, s)
}

// ParseStockAdjustMode converts raw input into a StockAdjustMode.
func ParseStockAdjustMode(value string) (StockAdjustMode, error) {
	return parse(value, validStockAdjustModes, "stock adjust mode")
}
