package gateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// InitiateInput asks the gateway to collect an invoice's outstanding balance.
// PayerContact is a phone number for mobile money and an email or phone
// for card.
type InitiateInput struct {
	InvoiceID    uuid.UUID
	PayerContact string
	Provider     enums.GatewayProvider
	Actor        auth.Actor
}

// InitiateResult describes the started charge.
type InitiateResult struct {
	Reference        string                `json:"reference"`
	Provider         enums.GatewayProvider `json:"provider"`
	Amount           string                `json:"amount"`
	Currency         string                `json:"currency"`
	Status           string                `json:"status"`
	DisplayText      string                `json:"displayText,omitempty"`
	AuthorizationURL string                `json:"authorizationUrl,omitempty"`
	AccessCode       string                `json:"accessCode,omitempty"`
}

// PaymentStatus is the gateway's view of a reference.
type PaymentStatus struct {
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	GatewayResponse string          `json:"gatewayResponse"`
	InvoiceID       *uuid.UUID      `json:"invoiceId,omitempty"`
}

// Confirmation is a successful charge to reconcile against an invoice,
// whether it arrived by webhook or by an explicit verify.
type Confirmation struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Channel   string
	PaidAt    *time.Time
	InvoiceID *uuid.UUID
	Source    string
}

// Result sources.
const (
	SourceWebhook = "webhook"
	SourceVerify  = "verify"
)

// ApplyResult reports what reconciliation did with a confirmation.
type ApplyResult struct {
	Reference     string                 `json:"reference"`
	Outcome       enums.ReferenceOutcome `json:"outcome"`
	Duplicate     bool                   `json:"duplicate"`
	InvoiceID     *uuid.UUID             `json:"invoiceId,omitempty"`
	PaymentID     *uuid.UUID             `json:"paymentId,omitempty"`
	InvoiceStatus enums.InvoiceStatus    `json:"invoiceStatus,omitempty"`
	Detail        string                 `json:"detail,omitempty"`
}

// VerifyResult is the outcome of a verify-now request.
type VerifyResult struct {
	Status PaymentStatus `json:"status"`
	Apply  *ApplyResult  `json:"apply,omitempty"`
}

// ChannelMethod maps a gateway channel onto a payment method.
func ChannelMethod(channel string) enums.PaymentMethod {
	switch channel {
	case "mobile_money":
		return enums.PaymentMethodMobileMoney
	case "bank_transfer", "bank":
		return enums.PaymentMethodBankTransfer
	}
	return enums.PaymentMethodCard
}
