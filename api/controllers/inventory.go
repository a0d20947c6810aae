package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/api/middleware"
	"github.com/plunoo/biskakenauto-sub000/api/responses"
	"github.com/plunoo/biskakenauto-sub000/api/validators"
	"github.com/plunoo/biskakenauto-sub000/internal/inventory"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
)

const partIDParam = "partId"

type createPartRequest struct {
	Name          string          `json:"name" validate:"required,notblank,max=255"`
	Category      string          `json:"category" validate:"required,notblank,max=100"`
	SKU           *string         `json:"sku" validate:"omitempty,max=64"`
	Supplier      *string         `json:"supplier" validate:"omitempty,max=255"`
	StockQuantity int             `json:"stockQuantity" validate:"min=0"`
	ReorderLevel  int             `json:"reorderLevel" validate:"min=0"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
}

type updatePartRequest struct {
	Name         *string          `json:"name" validate:"omitempty,max=255"`
	Category     *string          `json:"category" validate:"omitempty,max=100"`
	SKU          *string          `json:"sku" validate:"omitempty,max=64"`
	Supplier     *string          `json:"supplier" validate:"omitempty,max=255"`
	ReorderLevel *int             `json:"reorderLevel" validate:"omitempty,min=0"`
	UnitCost     *decimal.Decimal `json:"unitCost"`
	SellingPrice *decimal.Decimal `json:"sellingPrice"`
}

type adjustStockRequest struct {
	Quantity int     `json:"quantity" validate:"min=0"`
	Mode     string  `json:"mode" validate:"required"`
	Reason   *string `json:"reason" validate:"omitempty,max=500"`
}

func PartCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		var payload createPartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.CreatePart(r.Context(), inventory.CreatePartInput{
			Name:          validators.CleanText(payload.Name, 255),
			Category:      validators.CleanText(payload.Category, 100),
			SKU:           payload.SKU,
			Supplier:      payload.Supplier,
			StockQuantity: payload.StockQuantity,
			ReorderLevel:  payload.ReorderLevel,
			UnitCost:      payload.UnitCost,
			SellingPrice:  payload.SellingPrice,
			ActorUserID:   middleware.ActorFromContext(r.Context()).UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, part)
	}
}

// PartList lists parts, filtered by ?category= and ?lowStock=true.
func PartList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		query := r.URL.Query()
		parts, err := svc.ListParts(r.Context(), inventory.ListFilter{
			Category:     strings.TrimSpace(query.Get("category")),
			LowStockOnly: strings.EqualFold(query.Get("lowStock"), "true"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parts)
	}
}

func PartLowStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		parts, err := svc.LowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, parts)
	}
}

func PartGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, partIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.GetPart(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

// PartUpdate edits catalogue fields. Stock moves only through adjust.
func PartUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, partIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updatePartRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		part, err := svc.UpdatePart(r.Context(), id, inventory.UpdatePartInput{
			Name:         payload.Name,
			Category:     payload.Category,
			SKU:          payload.SKU,
			Supplier:     payload.Supplier,
			ReorderLevel: payload.ReorderLevel,
			UnitCost:     payload.UnitCost,
			SellingPrice: payload.SellingPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, part)
	}
}

func PartDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, partIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePart(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PartAdjust applies an administrative stock adjustment (add, subtract, set).
func PartAdjust(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, partIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := enums.ParseStockAdjustMode(strings.ToUpper(strings.TrimSpace(payload.Mode)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid adjustment mode"))
			return
		}
		result, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			PartID:      id,
			Quantity:    payload.Quantity,
			Mode:        mode,
			Reason:      payload.Reason,
			ActorUserID: middleware.ActorFromContext(r.Context()).UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
