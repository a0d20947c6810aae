package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/api/middleware"
	"github.com/plunoo/biskakenauto-sub000/api/responses"
	"github.com/plunoo/biskakenauto-sub000/api/validators"
	"github.com/plunoo/biskakenauto-sub000/internal/payments"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
)

type recordPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method" validate:"required"`
	Reference  *string         `json:"reference" validate:"omitempty,max=128"`
	Notes      *string         `json:"notes" validate:"omitempty,max=1000"`
	RecordedAt *time.Time      `json:"recordedAt"`
}

// PaymentRecord records a manual payment against an invoice.
func PaymentRecord(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		invoiceID, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").WithReason(pkgerrors.ReasonInvalidMethod))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithInvoiceID(ctx, invoiceID.String())
		}
		result, err := svc.RecordPayment(ctx, payments.RecordInput{
			InvoiceID:  invoiceID,
			Amount:     payload.Amount,
			Method:     method,
			Reference:  payload.Reference,
			Notes:      payload.Notes,
			RecordedAt: payload.RecordedAt,
			Actor:      middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func PaymentList(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		invoiceID, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListPayments(r.Context(), invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
