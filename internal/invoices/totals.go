package invoices

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
)

// Totals are the server-computed money fields of an invoice.
type Totals struct {
	LineTotals []decimal.Decimal
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
}

// ComputeTotals derives subtotal = Σ quantity×unitPrice and
// total = subtotal − discount + tax, rejecting malformed input.
func ComputeTotals(items []ItemInput, tax, discount decimal.Decimal) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "invoice requires at least one item")
	}
	if err := ValidateMoney("tax", tax, true); err != nil {
		return Totals{}, err
	}
	if err := ValidateMoney("discount", discount, true); err != nil {
		return Totals{}, err
	}

	out := Totals{LineTotals: make([]decimal.Decimal, len(items)), Tax: tax, Discount: discount}
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			return Totals{}, itemError(i, "description is required")
		}
		if item.Quantity <= 0 {
			return Totals{}, itemError(i, "quantity must be positive")
		}
		if err := ValidateMoney("unitPrice", item.UnitPrice, true); err != nil {
			return Totals{}, itemError(i, pkgerrors.As(err).Message())
		}
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		out.LineTotals[i] = line
		out.Subtotal = out.Subtotal.Add(line)
	}
	return out, out.finish()
}

// Recompute applies a new tax and discount to an existing subtotal.
func Recompute(subtotal, tax, discount decimal.Decimal) (Totals, error) {
	if err := ValidateMoney("tax", tax, true); err != nil {
		return Totals{}, err
	}
	if err := ValidateMoney("discount", discount, true); err != nil {
		return Totals{}, err
	}
	out := Totals{Subtotal: subtotal, Tax: tax, Discount: discount}
	return out, out.finish()
}

func (t *Totals) finish() error {
	t.Total = t.Subtotal.Sub(t.Discount).Add(t.Tax)
	if !t.Total.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice total must be greater than zero").
			WithDetails(map[string]any{
				"subtotal": t.Subtotal.StringFixed(2),
				"tax":      t.Tax.StringFixed(2),
				"discount": t.Discount.StringFixed(2),
			})
	}
	return nil
}

// ValidateMoney rejects negative amounts (or non-positive when allowZero is
// false) and more than two decimal places.
func ValidateMoney(field string, amount decimal.Decimal, allowZero bool) error {
	if amount.IsNegative() || (!allowZero && amount.IsZero()) {
		qualifier := "must not be negative"
		if !allowZero {
			qualifier = "must be greater than zero"
		}
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s %s", field, qualifier))
	}
	if !amount.Equal(amount.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s supports at most two decimal places", field))
	}
	return nil
}

func itemError(index int, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: %s", index+1, msg)).
		WithDetails(map[string]any{"item": index})
}

// SumPayments totals the recorded payments.
func SumPayments(payments []models.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Outstanding is total minus paid, never negative.
func Outstanding(total, paid decimal.Decimal) decimal.Decimal {
	out := total.Sub(paid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// DeriveStatus returns the status implied by the balance. PAID holds
// exactly when paid ≥ total. DRAFT and CANCELLED are kept while unpaid;
// unpaid sent invoices are OVERDUE once the due date has passed.
func DeriveStatus(current enums.InvoiceStatus, total, paid decimal.Decimal, dueDate *time.Time, now time.Time) enums.InvoiceStatus {
	if paid.GreaterThanOrEqual(total) {
		return enums.InvoiceStatusPaid
	}
	switch current {
	case enums.InvoiceStatusDraft, enums.InvoiceStatusCancelled:
		return current
	}
	if dueDate != nil && dueDate.Before(now) {
		return enums.InvoiceStatusOverdue
	}
	return enums.InvoiceStatusSent
}
