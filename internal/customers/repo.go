// Package customers is a read-only view over the customer and job records
// owned by the front-office module. Invoicing uses it to validate
// references and to build notification payloads.
package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
)

// Repository resolves customers and jobs.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to customer lookups.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// FindCustomer loads a customer, on tx when provided.
func (r *Repository) FindCustomer(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found").
				WithReason(pkgerrors.ReasonCustomerNotFound).
				WithDetails(map[string]any{"customerId": id})
		}
		return nil, db.Classify(err, "load customer")
	}
	return &customer, nil
}

// FindJob loads a job, on tx when provided.
func (r *Repository) FindJob(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job not found").
				WithReason(pkgerrors.ReasonJobNotFound).
				WithDetails(map[string]any{"jobId": id})
		}
		return nil, db.Classify(err, "load job")
	}
	return &job, nil
}
