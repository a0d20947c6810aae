package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	"github.com/plunoo/biskakenauto-sub000/pkg/pagination"
)

// SequenceInvoiceNumber names the invoice_sequences row backing invoice numbers.
const SequenceInvoiceNumber = "invoice_number"

// Repository persists invoices, their items and their number sequence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextSequence(ctx context.Context, name string) (int64, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	CreateItems(ctx context.Context, items []models.InvoiceItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	FindByNumber(ctx context.Context, number string) (*models.Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]models.Invoice, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.Invoice, error)
	UpdateFields(ctx context.Context, id uuid.UUID, expectedVersion int, fields map[string]any) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountPayments(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an invoice repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NextSequence increments the named counter and returns the new value. The
// UPDATE holds the row lock until the surrounding transaction ends, so two
// concurrent creations can never observe the same value.
func (r *repository) NextSequence(ctx context.Context, name string) (int64, error) {
	q := r.db.WithContext(ctx)
	bump := func() (int64, error) {
		res := q.Model(&models.InvoiceSequence{}).
			Where("name = ?", name).
			Update("value", gorm.Expr("value + 1"))
		return res.RowsAffected, res.Error
	}
	affected, err := bump()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// Concurrent first creations both seed; the loser's insert is a no-op
		// and its update waits on the winner's row lock.
		seed := models.InvoiceSequence{Name: name, Value: 0}
		if err := q.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return 0, fmt.Errorf("seed sequence %s: %w", name, err)
		}
		if affected, err = bump(); err != nil {
			return 0, err
		}
		if affected == 0 {
			return 0, fmt.Errorf("sequence %s missing after seed", name)
		}
	}
	var seq models.InvoiceSequence
	if err := q.Where("name = ?", name).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}

func (r *repository) Create(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) preloaded() *gorm.DB {
	return r.db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("recorded_at ASC").Order("id ASC") })
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.preloaded().WithContext(ctx).Where("id = ?", id).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForUpdate locks the invoice row and loads its payments, which is
// everything a balance check needs.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", id).
		Order("recorded_at ASC").Order("id ASC").
		Find(&invoice.Payments).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.preloaded().WithContext(ctx).Where("invoice_number = ?", number).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Invoice, error) {
	q := r.preloaded().WithContext(ctx).Model(&models.Invoice{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		q = q.Where("customer_id = ?", *filter.CustomerID)
	}
	cursor, err := pagination.Decode(filter.Page.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Invoice
	err = q.Order("created_at DESC").Order("id DESC").
		Limit(filter.Page.Fetch()).
		Find(&rows).Error
	return rows, err
}

// ListOverdue returns unpaid sent invoices whose due date has passed.
func (r *repository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.Invoice, error) {
	q := r.preloaded().WithContext(ctx).
		Where("status IN ? AND due_date IS NOT NULL AND due_date < ?",
			[]enums.InvoiceStatus{enums.InvoiceStatusSent, enums.InvoiceStatusOverdue}, now).
		Order("due_date ASC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Invoice
	err := q.Find(&rows).Error
	return rows, err
}

// UpdateFields applies fields and bumps version only when the stored version
// still equals expectedVersion.
func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, expectedVersion int, fields map[string]any) (bool, error) {
	fields["version"] = gorm.Expr("version + 1")
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	q := r.db.WithContext(ctx)
	if err := q.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		return err
	}
	if err := q.Where("invoice_id = ?", id).Delete(&models.InvoiceEvent{}).Error; err != nil {
		return err
	}
	if err := q.Where("invoice_id = ?", id).Delete(&models.PaymentAttempt{}).Error; err != nil {
		return err
	}
	return q.Where("id = ?", id).Delete(&models.Invoice{}).Error
}

func (r *repository) CountPayments(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Where("invoice_id = ?", id).Count(&n).Error
	return n, err
}
