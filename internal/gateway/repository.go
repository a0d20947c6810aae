package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// ReferenceIndex is the unique index on payment_attempts.reference.
const ReferenceIndex = "ux_payment_attempts_reference"

// AttemptRepository persists gateway payment attempts.
type AttemptRepository interface {
	WithTx(tx *gorm.DB) AttemptRepository
	Create(ctx context.Context, attempt *models.PaymentAttempt) error
	CountForInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	FindByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error)
	ListForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.PaymentAttempt, error)
	MarkResolved(ctx context.Context, reference string, status enums.PaymentAttemptStatus, response *string, at time.Time) error
	ExpirePendingBefore(ctx context.Context, cutoff, now time.Time) (int64, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) WithTx(tx *gorm.DB) AttemptRepository {
	if tx == nil {
		return r
	}
	return &attemptRepository{db: tx}
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *attemptRepository) CountForInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PaymentAttempt{}).Where("invoice_id = ?", invoiceID).Count(&n).Error
	return n, err
}

func (r *attemptRepository) FindByReference(ctx context.Context, reference string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) ListForInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.PaymentAttempt, error) {
	var rows []models.PaymentAttempt
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("created_at DESC").Find(&rows).Error
	return rows, err
}

// MarkResolved moves a PENDING attempt to a terminal status. Attempts that
// are already resolved are left alone.
func (r *attemptRepository) MarkResolved(ctx context.Context, reference string, status enums.PaymentAttemptStatus, response *string, at time.Time) error {
	fields := map[string]any{
		"status":      status,
		"resolved_at": at,
		"updated_at":  at,
	}
	if response != nil {
		fields["gateway_response"] = *response
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("reference = ? AND status = ?", reference, enums.AttemptPending).
		Updates(fields).Error
}

func (r *attemptRepository) ExpirePendingBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("status = ? AND created_at < ?", enums.AttemptPending, cutoff).
		Updates(map[string]any{
			"status":      enums.AttemptExpired,
			"resolved_at": now,
			"updated_at":  now,
		})
	return res.RowsAffected, res.Error
}
