package paystackwebhook

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
)

// AppliedRepository stores the durable record of reconciled references.
type AppliedRepository interface {
	WithTx(tx *gorm.DB) AppliedRepository
	Find(ctx context.Context, reference string) (*models.AppliedReference, error)
	Create(ctx context.Context, row *models.AppliedReference) error
	CreateIfAbsent(ctx context.Context, row *models.AppliedReference) (bool, error)
}

type appliedRepository struct {
	db *gorm.DB
}

func NewAppliedRepository(db *gorm.DB) AppliedRepository {
	return &appliedRepository{db: db}
}

func (r *appliedRepository) WithTx(tx *gorm.DB) AppliedRepository {
	if tx == nil {
		return r
	}
	return &appliedRepository{db: tx}
}

func (r *appliedRepository) Find(ctx context.Context, reference string) (*models.AppliedReference, error) {
	var row models.AppliedReference
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *appliedRepository) Create(ctx context.Context, row *models.AppliedReference) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// CreateIfAbsent inserts row unless the reference is already recorded and
// reports whether it did.
func (r *appliedRepository) CreateIfAbsent(ctx context.Context, row *models.AppliedReference) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "reference"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
