package paystack

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

// ToMinorUnits converts a cedi amount into pesewas. Amounts with more than
// two decimal places are rejected rather than rounded.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if !amount.Equal(amount.Round(2)) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount supports at most two decimal places")
	}
	return amount.Mul(minorUnitsPerMajor).IntPart(), nil
}

// FromMinorUnits converts pesewas reported by the gateway into cedis.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorUnitsPerMajor)
}
