package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox/payloads"
)

// Service is the inventory ledger. Reserve and Restock run on a caller
// supplied transaction; every other mutation owns its transaction.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, req ReservationRequest) error
	Restock(ctx context.Context, tx *gorm.DB, req RestockRequest) error
	Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error)
	CreatePart(ctx context.Context, input CreatePartInput) (*PartDTO, error)
	UpdatePart(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error)
	GetPart(ctx context.Context, id uuid.UUID) (*PartDTO, error)
	ListParts(ctx context.Context, filter ListFilter) ([]PartDTO, error)
	DeletePart(ctx context.Context, id uuid.UUID) error
	LowStock(ctx context.Context) ([]PartDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
}

// NewService constructs the inventory ledger. emitter may be nil, in which
// case no low stock notifications are queued.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter}, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, req ReservationRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "reservation requires a transaction")
	}
	if req.PartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "part id is required")
	}
	if req.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	ok, err := repo.DecrementIfAvailable(ctx, req.PartID, req.Quantity)
	if err != nil {
		return db.Classify(err, "reserve stock")
	}
	if !ok {
		part, err := repo.FindByID(ctx, req.PartID)
		if err != nil {
			if db.IsNotFound(err) {
				return partNotFound(req.PartID)
			}
			return db.Classify(err, "load part")
		}
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf(
			"insufficient stock for %s: available %d, requested %d",
			part.Name, part.StockQuantity, req.Quantity,
		)).WithReason(pkgerrors.ReasonInsufficientStock).WithDetails(map[string]any{
			"partId":    part.ID,
			"partName":  part.Name,
			"available": part.StockQuantity,
			"requested": req.Quantity,
		})
	}

	part, err := repo.FindByID(ctx, req.PartID)
	if err != nil {
		return db.Classify(err, "reload part")
	}
	movement := &models.StockMovement{
		PartID:        req.PartID,
		Kind:          enums.StockMovementReserve,
		QuantityDelta: -req.Quantity,
		QuantityAfter: part.StockQuantity,
		InvoiceID:     req.InvoiceID,
		ActorUserID:   req.ActorUserID,
	}
	if err := repo.AppendMovement(ctx, movement); err != nil {
		return db.Classify(err, "record stock movement")
	}

	// Only the reservation that crosses the reorder level notifies.
	before := part.StockQuantity + req.Quantity
	if s.outbox != nil && part.LowStock() && before > part.ReorderLevel {
		if err := s.outbox.Emit(ctx, tx, lowStockEvent(part)); err != nil {
			return db.Classify(err, "queue low stock notification")
		}
	}
	return nil
}

func lowStockEvent(part *models.Part) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventPartLowStock,
		AggregateType: enums.AggregatePart,
		AggregateID:   part.ID,
		Actor:         &outbox.ActorRef{Role: "system"},
		Data: payloads.PartLowStockEvent{
			PartID:        part.ID,
			PartName:      part.Name,
			StockQuantity: part.StockQuantity,
			ReorderLevel:  part.ReorderLevel,
		},
	}
}

func (s *service) Restock(ctx context.Context, tx *gorm.DB, req RestockRequest) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "restock requires a transaction")
	}
	if req.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	ok, err := repo.Increment(ctx, req.PartID, req.Quantity)
	if err != nil {
		return db.Classify(err, "restock part")
	}
	if !ok {
		return partNotFound(req.PartID)
	}
	part, err := repo.FindByID(ctx, req.PartID)
	if err != nil {
		return db.Classify(err, "reload part")
	}
	return db.Classify(repo.AppendMovement(ctx, &models.StockMovement{
		PartID:        req.PartID,
		Kind:          enums.StockMovementRestock,
		QuantityDelta: req.Quantity,
		QuantityAfter: part.StockQuantity,
		InvoiceID:     req.InvoiceID,
		Reason:        req.Reason,
		ActorUserID:   req.ActorUserID,
	}), "record stock movement")
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*AdjustResult, error) {
	if !input.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment type must be ADD, REMOVE or SET")
	}
	if input.Mode != enums.StockAdjustSet && input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment quantity must be positive")
	}

	var result *AdjustResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		part, err := repo.FindByIDForUpdate(ctx, input.PartID)
		if err != nil {
			if db.IsNotFound(err) {
				return partNotFound(input.PartID)
			}
			return db.Classify(err, "lock part")
		}

		before := part.StockQuantity
		after, kind := applyAdjustment(before, input.Quantity, input.Mode)
		if err := repo.SetQuantity(ctx, part.ID, after); err != nil {
			return db.Classify(err, "set stock quantity")
		}
		if err := repo.AppendMovement(ctx, &models.StockMovement{
			PartID:        part.ID,
			Kind:          kind,
			QuantityDelta: after - before,
			QuantityAfter: after,
			Reason:        input.Reason,
			ActorUserID:   input.ActorUserID,
		}); err != nil {
			return db.Classify(err, "record stock movement")
		}

		part.StockQuantity = after
		result = &AdjustResult{Part: toPartDTO(*part), QuantityBefore: before, QuantityAfter: after}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyAdjustment floors REMOVE and SET at zero.
func applyAdjustment(current, qty int, mode enums.StockAdjustMode) (int, enums.StockMovementKind) {
	switch mode {
	case enums.StockAdjustAdd:
		return current + qty, enums.StockMovementAdjustAdd
	case enums.StockAdjustRemove:
		return max(0, current-qty), enums.StockMovementAdjustRemove
	default:
		return max(0, qty), enums.StockMovementAdjustSet
	}
}

func (s *service) CreatePart(ctx context.Context, input CreatePartInput) (*PartDTO, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	if input.Name == "" || input.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and category are required")
	}
	if input.StockQuantity < 0 || input.ReorderLevel < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity and reorder level must not be negative")
	}
	if err := validatePricing(input.UnitCost, input.SellingPrice); err != nil {
		return nil, err
	}

	part := &models.Part{
		Name:          input.Name,
		Category:      input.Category,
		SKU:           input.SKU,
		Supplier:      input.Supplier,
		StockQuantity: input.StockQuantity,
		ReorderLevel:  input.ReorderLevel,
		UnitCost:      input.UnitCost,
		SellingPrice:  input.SellingPrice,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, part); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a part with this sku already exists")
			}
			return db.Classify(err, "create part")
		}
		return db.Classify(repo.AppendMovement(ctx, &models.StockMovement{
			PartID:        part.ID,
			Kind:          enums.StockMovementInitial,
			QuantityDelta: part.StockQuantity,
			QuantityAfter: part.StockQuantity,
			ActorUserID:   input.ActorUserID,
		}), "record initial stock")
	})
	if err != nil {
		return nil, err
	}
	dto := toPartDTO(*part)
	return &dto, nil
}

func (s *service) UpdatePart(ctx context.Context, id uuid.UUID, input UpdatePartInput) (*PartDTO, error) {
	var updated *models.Part
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		part, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return partNotFound(id)
			}
			return db.Classify(err, "lock part")
		}
		if input.Name != nil {
			part.Name = strings.TrimSpace(*input.Name)
		}
		if input.Category != nil {
			part.Category = strings.TrimSpace(*input.Category)
		}
		if input.SKU != nil {
			part.SKU = input.SKU
		}
		if input.Supplier != nil {
			part.Supplier = input.Supplier
		}
		if input.ReorderLevel != nil {
			if *input.ReorderLevel < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "reorder level must not be negative")
			}
			part.ReorderLevel = *input.ReorderLevel
		}
		if input.UnitCost != nil {
			part.UnitCost = *input.UnitCost
		}
		if input.SellingPrice != nil {
			part.SellingPrice = *input.SellingPrice
		}
		if part.Name == "" || part.Category == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name and category are required")
		}
		if err := validatePricing(part.UnitCost, part.SellingPrice); err != nil {
			return err
		}
		if err := repo.Save(ctx, part); err != nil {
			return db.Classify(err, "update part")
		}
		updated = part
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toPartDTO(*updated)
	return &dto, nil
}

func (s *service) GetPart(ctx context.Context, id uuid.UUID) (*PartDTO, error) {
	part, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, partNotFound(id)
		}
		return nil, db.Classify(err, "load part")
	}
	dto := toPartDTO(*part)
	return &dto, nil
}

func (s *service) ListParts(ctx context.Context, filter ListFilter) ([]PartDTO, error) {
	parts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, db.Classify(err, "list parts")
	}
	out := make([]PartDTO, 0, len(parts))
	for _, p := range parts {
		out = append(out, toPartDTO(p))
	}
	return out, nil
}

func (s *service) LowStock(ctx context.Context) ([]PartDTO, error) {
	return s.ListParts(ctx, ListFilter{LowStockOnly: true})
}

func (s *service) DeletePart(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByIDForUpdate(ctx, id); err != nil {
			if db.IsNotFound(err) {
				return partNotFound(id)
			}
			return db.Classify(err, "lock part")
		}
		usage, err := repo.CountUsage(ctx, id)
		if err != nil {
			return db.Classify(err, "count part usage")
		}
		if usage > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "part has been used on invoices or adjusted and cannot be deleted").
				WithReason(pkgerrors.ReasonPartInUse)
		}
		return db.Classify(repo.Delete(ctx, id), "delete part")
	})
}

func validatePricing(unitCost, sellingPrice decimal.Decimal) error {
	if unitCost.IsNegative() || sellingPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "prices must not be negative")
	}
	if !unitCost.Equal(unitCost.Round(2)) || !sellingPrice.Equal(sellingPrice.Round(2)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "prices support at most two decimal places")
	}
	if !sellingPrice.GreaterThan(unitCost) {
		return pkgerrors.New(pkgerrors.CodeValidation, "selling price must be greater than unit cost").
			WithReason(pkgerrors.ReasonPricing)
	}
	return nil
}

func partNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "part not found").
		WithReason(pkgerrors.ReasonPartNotFound).
		WithDetails(map[string]any{"partId": id})
}

// IsInsufficientStock reports whether err is a failed reservation.
func IsInsufficientStock(err error) bool {
	return pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock)
}
