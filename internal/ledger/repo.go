package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// Repository appends to and reads from invoice_events. Rows are never
// updated or deleted.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, event *models.InvoiceEvent) error
	History(ctx context.Context, invoiceID uuid.UUID, types []enums.InvoiceEventType) ([]models.InvoiceEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) Append(ctx context.Context, event *models.InvoiceEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// History returns events oldest first. An empty types slice matches all.
func (r *gormRepository) History(ctx context.Context, invoiceID uuid.UUID, types []enums.InvoiceEventType) ([]models.InvoiceEvent, error) {
	q := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID)
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	events := make([]models.InvoiceEvent, 0)
	err := q.Order("created_at ASC").Order("id ASC").Find(&events).Error
	return events, err
}
