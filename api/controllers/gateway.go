package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/plunoo/biskakenauto-sub000/api/middleware"
	"github.com/plunoo/biskakenauto-sub000/api/responses"
	"github.com/plunoo/biskakenauto-sub000/api/validators"
	"github.com/plunoo/biskakenauto-sub000/internal/gateway"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
)

type initiatePaymentRequest struct {
	Provider     string `json:"provider" validate:"required"`
	PayerContact string `json:"payerContact" validate:"omitempty,max=128"`
}

// GatewayInitiate starts a Paystack charge for an invoice's outstanding
// balance. The amount always comes from the invoice.
func GatewayInitiate(svc gateway.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured"))
			return
		}
		invoiceID, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		provider, err := enums.ParseGatewayProvider(strings.ToLower(strings.TrimSpace(payload.Provider)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid provider"))
			return
		}

		result, err := svc.Initiate(r.Context(), gateway.InitiateInput{
			InvoiceID:    invoiceID,
			PayerContact: strings.TrimSpace(payload.PayerContact),
			Provider:     provider,
			Actor:        middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// GatewayVerify asks Paystack for the reference status and reconciles a
// successful charge.
func GatewayVerify(svc gateway.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured"))
			return
		}
		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference required"))
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithReference(ctx, reference)
		}
		result, err := svc.VerifyAndApply(ctx, reference)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
