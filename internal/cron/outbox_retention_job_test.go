package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

var pruneNow = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func TestOutboxRetentionJobDrainsInBatches(t *testing.T) {
	repo := &chunkedPruner{remaining: 25}
	job := newOutboxRetentionJob(t, repo, OutboxRetentionJobParams{Batch: 10})

	deleted, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if deleted != 25 {
		t.Fatalf("expected 25 rows reported, got %d", deleted)
	}
	if repo.calls != 3 {
		t.Fatalf("expected 3 transactions, got %d", repo.calls)
	}
	if want := pruneNow.Add(-defaultOutboxRetention); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
}

func TestOutboxRetentionJobCustomWindow(t *testing.T) {
	repo := &chunkedPruner{}
	job := newOutboxRetentionJob(t, repo, OutboxRetentionJobParams{Retention: 7 * 24 * time.Hour})

	if _, err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := pruneNow.Add(-7 * 24 * time.Hour); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
	if repo.limit != defaultPruneBatch {
		t.Fatalf("expected default batch %d, got %d", defaultPruneBatch, repo.limit)
	}
}

func TestOutboxRetentionJobKeepsPartialCountOnError(t *testing.T) {
	repo := &chunkedPruner{remaining: 30, failOnCall: 2}
	job := newOutboxRetentionJob(t, repo, OutboxRetentionJobParams{Batch: 10})

	n, err := job.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if n != 10 {
		t.Fatalf("expected the first batch to count, got %d", n)
	}
}

func TestOutboxRetentionJobRequiresDeps(t *testing.T) {
	if _, err := NewOutboxRetentionJob(OutboxRetentionJobParams{DB: passthroughTx{}}); err == nil {
		t.Fatalf("expected error without repository")
	}
}

func newOutboxRetentionJob(t *testing.T, repo *chunkedPruner, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.DB = passthroughTx{}
	params.Repository = repo
	job, err := NewOutboxRetentionJob(params)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	j := job.(*outboxRetentionJob)
	j.now = func() time.Time { return pruneNow }
	return j
}

// chunkedPruner deletes up to limit of its remaining rows per call.
type chunkedPruner struct {
	remaining  int64
	calls      int
	failOnCall int
	cutoff     time.Time
	limit      int
}

func (p *chunkedPruner) DeletePublishedBefore(_ *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	p.calls++
	p.cutoff, p.limit = cutoff, limit
	if p.calls == p.failOnCall {
		return 0, errors.New("boom")
	}
	n := min(p.remaining, int64(limit))
	p.remaining -= n
	return n, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
