// Package relay moves committed outbox rows onto Pub/Sub. Rows are claimed
// with SKIP LOCKED inside one transaction per batch, so several relays can
// share a table.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/config"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/metrics"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox/registry"
)

// Outcome labels recorded per row.
const (
	OutcomePublished = "published"
	OutcomeRetry     = "retry"
	OutcomeDead      = "dead_lettered"
)

type Store interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type DeadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDeadLetter) error
}

type Resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Pinger is checked once before the first batch.
type Pinger interface {
	Ping(context.Context) error
}

// Options tunes batching and retry. Zero fields take defaults.
type Options struct {
	BatchSize      int
	MaxAttempts    int
	PollInterval   time.Duration
	PublishTimeout time.Duration
	MaxBackoff     time.Duration
	Jitter         time.Duration
}

// OptionsFrom maps env config onto relay options.
func OptionsFrom(cfg config.OutboxConfig) Options {
	return Options{
		BatchSize:    cfg.BatchSize,
		MaxAttempts:  cfg.MaxAttempts,
		PollInterval: time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = 15 * time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Second
	}
	if o.Jitter < 0 {
		o.Jitter = 0
	} else if o.Jitter == 0 {
		o.Jitter = 250 * time.Millisecond
	}
	return o
}

type Params struct {
	Options     Options
	Logger      *logger.Logger
	DB          TxRunner
	Store       Store
	DeadLetters DeadLetters
	Resolver    Resolver
	Sender      Sender
	Metrics     *metrics.OutboxMetrics
	// Probes are pinged by name before Run starts polling.
	Probes map[string]Pinger
	Clock  func() time.Time
}

type Relay struct {
	opts    Options
	logg    *logger.Logger
	db      TxRunner
	store   Store
	dlq     DeadLetters
	resolve Resolver
	sender  Sender
	metrics *metrics.OutboxMetrics
	probes  map[string]Pinger
	now     func() time.Time
}

func New(p Params) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("transaction runner is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.DeadLetters == nil:
		return nil, errors.New("dead letter store is required")
	case p.Resolver == nil:
		return nil, errors.New("event resolver is required")
	case p.Sender == nil:
		return nil, errors.New("sender is required")
	}
	clock := p.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Relay{
		opts:    p.Options.withDefaults(),
		logg:    p.Logger,
		db:      p.DB,
		store:   p.Store,
		dlq:     p.DeadLetters,
		resolve: p.Resolver,
		sender:  p.Sender,
		metrics: p.Metrics,
		probes:  p.Probes,
		now:     clock,
	}, nil
}

// Run polls until ctx is cancelled. A full batch is followed immediately by
// the next one; failed batches back off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	for name, probe := range r.probes {
		if err := probe.Ping(ctx); err != nil {
			r.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := newBackoff(r.opts.PollInterval, r.opts.MaxBackoff, r.opts.Jitter)
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		claimed, err := r.RunBatch(ctx)
		var d time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay batch failed", err)
			d = wait.fail()
		case claimed > 0:
			wait.reset()
			continue
		default:
			d = wait.reset()
		}
		if err := sleep(ctx, d); err != nil {
			return err
		}
	}
}

// RunBatch claims up to BatchSize rows and settles each of them. It reports
// how many rows were claimed. Publish failures are recorded on the row;
// only bookkeeping failures roll the batch back.
func (r *Relay) RunBatch(ctx context.Context) (int, error) {
	claimed := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.opts.BatchSize, r.opts.MaxAttempts)
		if err != nil {
			return err
		}
		claimed = len(events)
		r.metrics.SetBatch(claimed)
		for _, event := range events {
			v := r.attempt(ctx, event)
			if err := r.settle(ctx, tx, event, v); err != nil {
				return err
			}
			r.metrics.IncOutcome(string(event.EventType), v.outcome)
		}
		return nil
	})
	return claimed, err
}

// verdict is what one publish attempt decided for a row.
type verdict struct {
	outcome string
	reason  enums.OutboxDLQErrorReason
	cause   error
	topic   string
}

func (r *Relay) attempt(ctx context.Context, event models.OutboxEvent) verdict {
	resolved, err := r.resolve.Resolve(event)
	if err != nil {
		return verdict{outcome: OutcomeDead, reason: enums.OutboxDLQReasonNonRetryable, cause: err}
	}
	topic := resolved.Descriptor.Topic

	sendCtx, cancel := context.WithTimeout(ctx, r.opts.PublishTimeout)
	defer cancel()
	err = r.sender.Send(sendCtx, topic, buildMessage(event, resolved))

	var nonRetryable registry.NonRetryableError
	switch {
	case err == nil:
		return verdict{outcome: OutcomePublished, topic: topic}
	case errors.As(err, &nonRetryable):
		return verdict{outcome: OutcomeDead, reason: enums.OutboxDLQReasonNonRetryable, cause: err, topic: topic}
	case event.AttemptCount+1 >= r.opts.MaxAttempts:
		return verdict{
			outcome: OutcomeDead,
			reason:  enums.OutboxDLQReasonMaxAttempts,
			cause:   fmt.Errorf("max publish attempts reached: %w", err),
			topic:   topic,
		}
	default:
		return verdict{outcome: OutcomeRetry, cause: err, topic: topic}
	}
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, v verdict) error {
	logCtx := r.logg.WithFields(ctx, rowFields(event, v))
	switch v.outcome {
	case OutcomePublished:
		if err := r.store.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		r.logg.Info(logCtx, "outbox event published")
	case OutcomeRetry:
		r.logg.Warn(logCtx, "outbox publish failed, will retry")
		if err := r.store.MarkFailedTx(tx, event.ID, v.cause); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
	default:
		r.logg.Warn(logCtx, "outbox event dead-lettered")
		msg := v.cause.Error()
		entry := models.OutboxDeadLetter{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   v.reason,
			ErrorMessage:  &msg,
			AttemptCount:  event.AttemptCount,
			FailedAt:      r.now(),
		}
		if err := r.dlq.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dead letter %s: %w", event.ID, err)
		}
		if err := r.store.MarkTerminalTx(tx, event.ID, v.cause, r.opts.MaxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
	}
	return nil
}

func rowFields(event models.OutboxEvent, v verdict) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
		"outcome":        v.outcome,
	}
	if v.topic != "" {
		fields["topic"] = v.topic
	}
	if v.reason != "" {
		fields["error_reason"] = v.reason
	}
	if v.cause != nil {
		fields["error"] = v.cause.Error()
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
