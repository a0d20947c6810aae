package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// Repository persists parts and their stock movements.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, part *models.Part) error
	Save(ctx context.Context, part *models.Part) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Part, error)
	List(ctx context.Context, filter ListFilter) ([]models.Part, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DecrementIfAvailable(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	Increment(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	SetQuantity(ctx context.Context, id uuid.UUID, qty int) error
	AppendMovement(ctx context.Context, movement *models.StockMovement) error
	CountUsage(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

func (r *repository) Save(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ?", part.ID).
		Updates(map[string]any{
			"name":          part.Name,
			"category":      part.Category,
			"sku":           part.SKU,
			"supplier":      part.Supplier,
			"reorder_level": part.ReorderLevel,
			"unit_cost":     part.UnitCost,
			"selling_price": part.SellingPrice,
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	var part models.Part
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&part).Error
	if err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Part, error) {
	q := r.db.WithContext(ctx).Model(&models.Part{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.LowStockOnly {
		q = q.Where("stock_quantity <= reorder_level")
	}
	var parts []models.Part
	err := q.Order("name ASC").Order("id ASC").Find(&parts).Error
	return parts, err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Part{}).Error
}

// DecrementIfAvailable subtracts qty only when enough stock remains. The
// condition lives in the UPDATE so concurrent reservations cannot oversell.
func (r *repository) DecrementIfAvailable(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Increment(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", qty),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock_quantity": qty,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (r *repository) AppendMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// CountUsage counts invoice lines and non-initial movements referencing the part.
func (r *repository) CountUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	var items int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceItem{}).Where("part_id = ?", id).Count(&items).Error; err != nil {
		return 0, err
	}
	var movements int64
	err := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Where("part_id = ? AND kind <> ?", id, enums.StockMovementInitial).
		Count(&movements).Error
	if err != nil {
		return 0, err
	}
	return items + movements, nil
}
