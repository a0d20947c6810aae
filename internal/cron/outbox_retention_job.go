package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultPruneBatch      = 1000
)

type OutboxRetentionJobParams struct {
	DB         txRunner
	Repository outboxPruner
	Retention  time.Duration
	// Batch caps the rows deleted per transaction.
	Batch int
}

type outboxPruner interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

// NewOutboxRetentionJob deletes published outbox rows older than the
// retention window in short transactions until none are left. Rows still
// waiting for the relay are never touched.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	j := &outboxRetentionJob{
		db:        params.DB,
		repo:      params.Repository,
		retention: params.Retention,
		batch:     params.Batch,
		now:       time.Now,
	}
	if j.retention <= 0 {
		j.retention = defaultOutboxRetention
	}
	if j.batch <= 0 {
		j.batch = defaultPruneBatch
	}
	return j, nil
}

type outboxRetentionJob struct {
	db        txRunner
	repo      outboxPruner
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = j.repo.DeletePublishedBefore(tx, cutoff, j.batch)
			return err
		})
		if err != nil {
			return total, fmt.Errorf("prune outbox before %s: %w", cutoff.Format(time.RFC3339), err)
		}
		total += n
		if n < int64(j.batch) {
			return total, nil
		}
	}
}
