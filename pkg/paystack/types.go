package paystack

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction statuses reported by verify and webhooks.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
	StatusPending   = "pending"
	StatusOngoing   = "ongoing"
	StatusReversed  = "reversed"
)

// Metadata is attached to every charge so confirmations can be traced back
// to an invoice.
type Metadata struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Referrer      string `json:"referrer,omitempty"`
}

// MobileMoneyChargeRequest starts a mobile money debit on the payer's wallet.
type MobileMoneyChargeRequest struct {
	Email     string
	Amount    decimal.Decimal
	Phone     string
	Provider  string
	Reference string
	Metadata  Metadata
}

// InitializeRequest starts a hosted card checkout.
type InitializeRequest struct {
	Email       string
	Amount      decimal.Decimal
	Reference   string
	CallbackURL string
	Channels    []string
	Metadata    Metadata
}

// ChargeResult is the gateway's acknowledgement of a started charge.
type ChargeResult struct {
	Reference        string
	Status           string
	DisplayText      string
	AuthorizationURL string
	AccessCode       string
	RawResponse      string
}

// Transaction is the verified state of a charge.
type Transaction struct {
	Reference       string
	Status          string
	Amount          decimal.Decimal
	Currency        string
	Channel         string
	GatewayResponse string
	PaidAt          *time.Time
	Fees            decimal.Decimal
	Metadata        Metadata
	CustomerEmail   string
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type chargeData struct {
	Reference        string `json:"reference"`
	Status           string `json:"status"`
	DisplayText      string `json:"display_text"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

// TransactionData is the wire shape shared by verify responses and
// charge.* webhook payloads.
type TransactionData struct {
	Reference       string       `json:"reference"`
	Status          string       `json:"status"`
	Amount          int64        `json:"amount"`
	Currency        string       `json:"currency"`
	Channel         string       `json:"channel"`
	GatewayResponse string       `json:"gateway_response"`
	PaidAt          *time.Time   `json:"paid_at"`
	Fees            int64        `json:"fees"`
	Metadata        FlexMetadata `json:"metadata"`
	Customer        struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
}

// Transaction converts wire units into cedis.
func (d TransactionData) Transaction() Transaction {
	return Transaction{
		Reference:       d.Reference,
		Status:          d.Status,
		Amount:          FromMinorUnits(d.Amount),
		Currency:        d.Currency,
		Channel:         d.Channel,
		GatewayResponse: d.GatewayResponse,
		PaidAt:          d.PaidAt,
		Fees:            FromMinorUnits(d.Fees),
		Metadata:        Metadata(d.Metadata),
		CustomerEmail:   d.Customer.Email,
	}
}
