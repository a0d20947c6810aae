package paystackwebhook

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/paystack"
)

const EventChargeSuccess = "charge.success"

// Event is a decoded webhook delivery: either a ChargeEvent to reconcile or
// an IgnoredEvent to acknowledge.
type Event interface {
	EventName() string
}

// ChargeEvent is a charge.success delivery.
type ChargeEvent struct {
	Name string
	Data paystack.TransactionData
}

func (e ChargeEvent) EventName() string { return e.Name }

// IgnoredEvent is any delivery that never changes invoice state.
type IgnoredEvent struct {
	Name  string
	Known bool
}

func (e IgnoredEvent) EventName() string { return e.Name }

var knownIgnored = map[string]struct{}{
	"charge.failed":          {},
	"charge.dispute.create":  {},
	"charge.dispute.remind":  {},
	"charge.dispute.resolve": {},
	"transfer.success":       {},
	"transfer.failed":        {},
	"transfer.reversed":      {},
	"refund.pending":         {},
	"refund.processing":      {},
	"refund.processed":       {},
	"refund.failed":          {},
	"paymentrequest.pending": {},
	"paymentrequest.success": {},
}

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode parses a raw webhook body. Malformed bodies and charge events
// without a reference are validation errors; the gateway should not retry them.
func Decode(body []byte) (Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	name := strings.TrimSpace(wire.Event)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event name missing")
	}
	if name != EventChargeSuccess {
		_, known := knownIgnored[name]
		return IgnoredEvent{Name: name, Known: known}, nil
	}

	var data paystack.TransactionData
	if len(wire.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge event data missing")
	}
	if err := json.Unmarshal(wire.Data, &data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed charge event data")
	}
	data.Reference = strings.TrimSpace(data.Reference)
	if data.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge event reference missing")
	}
	return ChargeEvent{Name: name, Data: data}, nil
}
