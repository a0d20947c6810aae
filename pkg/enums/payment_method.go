package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is how a payment was tendered.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodCheck        PaymentMethod = "CHECK"
)

// paymentMethodAliases accepts the spellings the front desk types into the
// payment form alongside the canonical names.
var paymentMethodAliases = map[string]PaymentMethod{
	"CASH":          PaymentMethodCash,
	"MOBILE_MONEY":  PaymentMethodMobileMoney,
	"MOMO":          PaymentMethodMobileMoney,
	"BANK_TRANSFER": PaymentMethodBankTransfer,
	"BANK":          PaymentMethodBankTransfer,
	"TRANSFER":      PaymentMethodBankTransfer,
	"CARD":          PaymentMethodCard,
	"CHECK":         PaymentMethodCheck,
	"CHEQUE":        PaymentMethodCheck,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a canonical PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodMobileMoney, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodCheck:
		return true
	}
	return false
}

// ParsePaymentMethod is case-insensitive and treats spaces and dashes as
// underscores, so "mobile money" and "Bank-Transfer" both resolve.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	key := strings.ToUpper(strings.TrimSpace(value))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if method, ok := paymentMethodAliases[key]; ok {
		return method, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

