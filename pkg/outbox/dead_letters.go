package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

const (
	maxDeadLetterMessage  = 1024
	defaultDeadLetterPage = 50
)

// ErrDeadLetterNotFound is returned by Requeue for unknown event ids.
var ErrDeadLetterNotFound = errors.New("dead letter not found")

// DLQRepository stores outbox rows the publisher gave up on, so an operator
// can inspect them and send them again.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records entry inside the publisher's claim transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDeadLetter) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > maxDeadLetterMessage {
		msg := (*entry.ErrorMessage)[:maxDeadLetterMessage]
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// Recent lists dead letters newest first, optionally for one event type.
func (r *DLQRepository) Recent(ctx context.Context, eventType *enums.OutboxEventType, limit int) ([]models.OutboxDeadLetter, error) {
	if limit <= 0 {
		limit = defaultDeadLetterPage
	}
	q := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit)
	if eventType != nil {
		q = q.Where("event_type = ?", *eventType)
	}
	var rows []models.OutboxDeadLetter
	return rows, q.Find(&rows).Error
}

// Requeue removes the dead letter for eventID and resets the outbox row so
// the publisher claims it on its next poll.
func (r *DLQRepository) Requeue(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("event_id = ?", eventID).Delete(&models.OutboxDeadLetter{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDeadLetterNotFound
		}
		res = tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", eventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("outbox event %s missing or already published", eventID)
		}
		return nil
	})
}
