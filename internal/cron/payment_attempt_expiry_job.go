package cron

import (
	"context"
	"fmt"
	"time"
)

const defaultAttemptTTL = 24 * time.Hour

type attemptExpirer interface {
	ExpireStaleAttempts(ctx context.Context, olderThan time.Duration) (int64, error)
}

type PaymentAttemptExpiryJobParams struct {
	Gateway attemptExpirer
	TTL     time.Duration
}

// NewPaymentAttemptExpiryJob closes gateway attempts that never received a
// webhook or verification within TTL.
func NewPaymentAttemptExpiryJob(params PaymentAttemptExpiryJobParams) (Job, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultAttemptTTL
	}
	return &paymentAttemptExpiryJob{
		gateway: params.Gateway,
		ttl:     ttl,
	}, nil
}

type paymentAttemptExpiryJob struct {
	gateway attemptExpirer
	ttl     time.Duration
}

func (j *paymentAttemptExpiryJob) Name() string { return "payment-attempt-expiry" }

func (j *paymentAttemptExpiryJob) Run(ctx context.Context) (int64, error) {
	expired, err := j.gateway.ExpireStaleAttempts(ctx, j.ttl)
	if err != nil {
		return 0, fmt.Errorf("expire payment attempts older than %s: %w", j.ttl, err)
	}
	return expired, nil
}
