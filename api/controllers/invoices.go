package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/api/middleware"
	"github.com/plunoo/biskakenauto-sub000/api/responses"
	"github.com/plunoo/biskakenauto-sub000/api/validators"
	"github.com/plunoo/biskakenauto-sub000/internal/invoices"
	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/pagination"
)

const invoiceIDParam = "invoiceId"

type createInvoiceRequest struct {
	CustomerID uuid.UUID            `json:"customerId" validate:"required"`
	JobID      *uuid.UUID           `json:"jobId"`
	Items      []invoiceItemPayload `json:"items" validate:"required,min=1,dive"`
	Tax        *decimal.Decimal     `json:"tax"`
	Discount   *decimal.Decimal     `json:"discount"`
	DueDate    *string              `json:"dueDate"`
	Notes      *string              `json:"notes" validate:"omitempty,max=2000"`
	Send       *bool                `json:"send"`
}

type invoiceItemPayload struct {
	Description string          `json:"description" validate:"required,notblank,max=255"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	PartID      *uuid.UUID      `json:"partId"`
}

func (r createInvoiceRequest) toInput(sendDefault bool) (invoices.CreateInput, error) {
	due, err := parseDate("dueDate", r.DueDate)
	if err != nil {
		return invoices.CreateInput{}, err
	}
	items := make([]invoices.ItemInput, len(r.Items))
	for i, item := range r.Items {
		items[i] = invoices.ItemInput{
			Description: validators.CleanText(item.Description, 255),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			PartID:      item.PartID,
		}
	}
	input := invoices.CreateInput{
		CustomerID: r.CustomerID,
		JobID:      r.JobID,
		Items:      items,
		DueDate:    due,
		Notes:      r.Notes,
		Send:       sendDefault,
	}
	if r.Tax != nil {
		input.Tax = *r.Tax
	}
	if r.Discount != nil {
		input.Discount = *r.Discount
	}
	if r.Send != nil {
		input.Send = *r.Send
	}
	return input, nil
}

type updateInvoiceRequest struct {
	DueDate  *string          `json:"dueDate"`
	Notes    *string          `json:"notes" validate:"omitempty,max=2000"`
	Tax      *decimal.Decimal `json:"tax"`
	Discount *decimal.Decimal `json:"discount"`
}

// InvoiceCreate creates an invoice and reserves stock for part-backed lines.
func InvoiceCreate(svc invoices.Service, sendDefault bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		var payload createInvoiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(sendDefault)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Actor = middleware.ActorFromContext(r.Context())

		invoice, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

// InvoiceList pages through invoices, optionally by status or customer.
func InvoiceList(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := validators.ParseOptionalUUIDQuery(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := invoices.ListFilter{
			CustomerID: customerID,
			Page:       pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseInvoiceStatus(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}

		result, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// InvoiceListOverdue returns outstanding invoices past their due date.
func InvoiceListOverdue(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		overdue, err := svc.ListOverdue(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overdue)
	}
}

func InvoiceGet(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

func InvoiceGetByNumber(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		number := strings.TrimSpace(chi.URLParam(r, "number"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invoice number required"))
			return
		}
		invoice, err := svc.GetByNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

// InvoiceUpdate patches due date, notes, tax or discount. Totals are
// recomputed by the service.
func InvoiceUpdate(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateInvoiceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		due, err := parseDate("dueDate", payload.DueDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.Update(r.Context(), id, invoices.UpdateInput{
			DueDate:  due,
			Notes:    payload.Notes,
			Tax:      payload.Tax,
			Discount: payload.Discount,
			Actor:    middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

func InvoiceSend(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return invoiceTransition(svc, logg, invoices.Service.Send)
}

func InvoiceCancel(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return invoiceTransition(svc, logg, invoices.Service.Cancel)
}

// InvoiceRestock returns reserved stock for a cancelled invoice.
func InvoiceRestock(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return invoiceTransition(svc, logg, invoices.Service.Restock)
}

type transitionCall func(invoices.Service, context.Context, uuid.UUID, auth.Actor) (*invoices.InvoiceDTO, error)

func invoiceTransition(svc invoices.Service, logg *logger.Logger, call transitionCall) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := call(svc, r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

func InvoiceDelete(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id, middleware.ActorFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// InvoiceSendReminder queues a payment reminder notification.
func InvoiceSendReminder(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SendReminder(r.Context(), id, middleware.ActorFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}

func InvoicePDF(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body, filename, err := svc.RenderPDF(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAttachment(w, "application/pdf", filename, body)
	}
}

// InvoiceHistory lists the audit trail. ?type= may repeat or carry a
// comma separated list of event types.
func InvoiceHistory(svc invoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, invoiceIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var types []enums.InvoiceEventType
		for _, raw := range r.URL.Query()["type"] {
			for _, part := range strings.Split(raw, ",") {
				part = strings.ToLower(strings.TrimSpace(part))
				if part == "" {
					continue
				}
				typ, err := enums.ParseInvoiceEventType(part)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event type").
						WithDetails(map[string]string{"type": part}))
					return
				}
				types = append(types, typ)
			}
		}
		events, err := svc.History(r.Context(), id, types...)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid date").WithDetails(map[string]string{field: "must be YYYY-MM-DD or RFC3339"})
}
