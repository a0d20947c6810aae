package paystackwebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/internal/gateway"
	"github.com/plunoo/biskakenauto-sub000/internal/payments"
	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/metrics"
	"github.com/plunoo/biskakenauto-sub000/pkg/paystack"
)

// ConsumerName scopes the Redis idempotency keys written by the reconciler.
const ConsumerName = "paystack-webhook"

const tracerName = "github.com/plunoo/biskakenauto-sub000/internal/webhooks/paystack"

// Outcome labels for webhook_events_total.
const (
	outcomeApplied   = "applied"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeIgnored   = "ignored"
	outcomeError     = "error"
)

var errRejected = errors.New("confirmation rejected")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentRecorder interface {
	RecordPaymentTx(ctx context.Context, tx *gorm.DB, input payments.RecordInput) (*payments.RecordResult, error)
}

type guard interface {
	Claim(ctx context.Context, consumer, key string) (bool, error)
	Release(ctx context.Context, consumer, key string) error
}

// ServiceParams wires the reconciler. Guard, Metrics and Logger are optional.
type ServiceParams struct {
	Applied  AppliedRepository
	Attempts gateway.AttemptRepository
	Payments paymentRecorder
	TxRunner txRunner
	Guard    guard
	Metrics  *metrics.WebhookMetrics
	Logger   *logger.Logger
	Clock    func() time.Time
}

// Service reconciles gateway confirmations into payments exactly once per
// reference.
type Service struct {
	applied  AppliedRepository
	attempts gateway.AttemptRepository
	payments paymentRecorder
	tx       txRunner
	guard    guard
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type rejection struct {
	invoiceID *uuid.UUID
	detail    string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Applied == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "applied reference repository required")
	}
	if params.Attempts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "attempt repository required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment recorder required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		applied:  params.Applied,
		attempts: params.Attempts,
		payments: params.Payments,
		tx:       params.TxRunner,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     params.Logger,
		tracer:   otel.Tracer(tracerName),
		now:      clock,
	}, nil
}

// HandleEvent reconciles a decoded delivery. Ignored events return a nil
// result and no error.
func (s *Service) HandleEvent(ctx context.Context, event Event) (*gateway.ApplyResult, error) {
	switch e := event.(type) {
	case ChargeEvent:
		if e.Data.Status != paystack.StatusSuccess {
			status := e.Data.Status
			if status == "" {
				status = "missing"
			}
			s.ignore(ctx, e.Name, "charge status "+status)
			return nil, nil
		}
		tx := e.Data.Transaction()
		conf := gateway.Confirmation{
			Reference: tx.Reference,
			Amount:    tx.Amount,
			Currency:  tx.Currency,
			Channel:   tx.Channel,
			PaidAt:    tx.PaidAt,
			Source:    gateway.SourceWebhook,
		}
		if id, err := uuid.Parse(tx.Metadata.InvoiceID); err == nil {
			conf.InvoiceID = &id
		}
		return s.Apply(ctx, conf)
	case IgnoredEvent:
		detail := "no-op event"
		if !e.Known {
			detail = "unrecognised event"
		}
		s.ignore(ctx, e.Name, detail)
		return nil, nil
	case nil:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported event %T", event))
}

func (s *Service) ignore(ctx context.Context, name, detail string) {
	s.metrics.IncEvent(name, outcomeIgnored)
	if s.logg != nil {
		ctx = s.logg.WithField(ctx, "event", name)
		s.logg.Info(ctx, "paystack webhook acknowledged without action: "+detail)
	}
}

// Apply records a confirmed charge as a payment. Applying the same
// reference again returns the stored outcome with Duplicate set. Business
// rejections are recorded and returned without error; only transient
// failures return an error, and those leave nothing recorded.
func (s *Service) Apply(ctx context.Context, c gateway.Confirmation) (*gateway.ApplyResult, error) {
	c.Reference = strings.TrimSpace(c.Reference)
	if c.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmation reference required")
	}
	eventName := EventChargeSuccess
	if c.Source == gateway.SourceVerify {
		eventName = gateway.SourceVerify
	}

	ctx, span := s.tracer.Start(ctx, "paystack.webhook.apply", trace.WithAttributes(
		attribute.String("paystack.reference", c.Reference),
		attribute.String("paystack.source", c.Source),
	))
	defer span.End()
	if s.logg != nil {
		ctx = s.logg.WithReference(ctx, c.Reference)
	}

	guarded := false
	if s.guard != nil {
		first, err := s.guard.Claim(ctx, ConsumerName, c.Reference)
		switch {
		case err != nil:
			if s.logg != nil {
				s.logg.Warn(ctx, "idempotency guard unavailable, relying on applied references: "+err.Error())
			}
		case !first:
			// A held claim is only a hint: a failed delivery whose release
			// also failed leaves one behind. applied_references decides.
			if row, err := s.applied.Find(ctx, c.Reference); err == nil {
				result := resultFromRow(row, true)
				s.finish(span, eventName, result)
				return result, nil
			}
			if s.logg != nil {
				s.logg.Warn(ctx, "idempotency claim held without an applied reference, reconciling")
			}
		default:
			guarded = true
		}
	}

	result, err := s.applyOnce(ctx, c)
	if err != nil {
		if guarded {
			if delErr := s.guard.Release(context.WithoutCancel(ctx), ConsumerName, c.Reference); delErr != nil && s.logg != nil {
				s.logg.Error(ctx, "failed to release idempotency guard", delErr)
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.IncEvent(eventName, outcomeError)
		if s.logg != nil {
			s.logg.Error(ctx, "paystack confirmation failed", err)
		}
		return nil, err
	}
	s.finish(span, eventName, result)
	return result, nil
}

func (s *Service) finish(span trace.Span, eventName string, result *gateway.ApplyResult) {
	outcome := outcomeApplied
	switch {
	case result.Duplicate:
		outcome = outcomeDuplicate
	case result.Outcome == enums.ReferenceRejected:
		outcome = outcomeRejected
	}
	span.SetAttributes(attribute.String("paystack.outcome", outcome))
	s.metrics.IncEvent(eventName, outcome)
}

func (s *Service) applyOnce(ctx context.Context, c gateway.Confirmation) (*gateway.ApplyResult, error) {
	var (
		result   *gateway.ApplyResult
		rejected *rejection
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied := s.applied.WithTx(tx)
		existing, err := applied.Find(ctx, c.Reference)
		if err == nil {
			result = resultFromRow(existing, true)
			return nil
		}
		if !db.IsNotFound(err) {
			return db.Classify(err, "load applied reference")
		}

		invoiceID, rej, err := s.resolveInvoice(ctx, tx, c)
		if err != nil {
			return err
		}
		if rej != nil {
			rejected = rej
			return errRejected
		}

		reference := c.Reference
		notes := "Paystack " + strings.ReplaceAll(strings.TrimSpace(c.Channel), "_", " ") + " payment"
		rec, err := s.payments.RecordPaymentTx(ctx, tx, payments.RecordInput{
			InvoiceID:  invoiceID,
			Amount:     c.Amount,
			Method:     gateway.ChannelMethod(c.Channel),
			Reference:  &reference,
			Notes:      &notes,
			RecordedAt: c.PaidAt,
			Actor:      auth.SystemActor(),
		})
		if err != nil {
			if permanent(err) {
				rejected = &rejection{invoiceID: &invoiceID, detail: err.Error()}
				return errRejected
			}
			return err
		}

		paymentID := rec.Payment.ID
		row := &models.AppliedReference{
			Reference: c.Reference,
			InvoiceID: &invoiceID,
			PaymentID: &paymentID,
			Outcome:   enums.ReferenceApplied,
			Source:    c.Source,
		}
		if err := applied.Create(ctx, row); err != nil {
			return err
		}
		if err := s.attempts.WithTx(tx).MarkResolved(ctx, c.Reference, enums.AttemptSucceeded, nil, s.now()); err != nil {
			return db.Classify(err, "resolve payment attempt")
		}
		result = resultFromRow(row, false)
		result.InvoiceStatus = rec.NewStatus
		return nil
	})

	switch {
	case err == nil:
		if s.logg != nil && !result.Duplicate {
			s.logg.Info(ctx, "paystack payment applied")
		}
		return result, nil
	case errors.Is(err, errRejected):
		return s.reject(ctx, c, rejected)
	case db.IsUniqueViolation(err, "") && pkgerrors.As(err) == nil:
		return s.duplicate(ctx, c.Reference), nil
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply gateway confirmation")
	}
	return nil, err
}

func (s *Service) resolveInvoice(ctx context.Context, tx *gorm.DB, c gateway.Confirmation) (uuid.UUID, *rejection, error) {
	attempt, err := s.attempts.WithTx(tx).FindByReference(ctx, c.Reference)
	if err != nil {
		if !db.IsNotFound(err) {
			return uuid.Nil, nil, db.Classify(err, "load payment attempt")
		}
	}

	switch {
	case c.InvoiceID == nil && attempt == nil:
		return uuid.Nil, &rejection{detail: string(pkgerrors.ReasonUnknownReference) + ": no invoice for reference"}, nil
	case attempt == nil:
		return *c.InvoiceID, nil, nil
	case c.InvoiceID != nil && *c.InvoiceID != attempt.InvoiceID:
		id := attempt.InvoiceID
		return uuid.Nil, &rejection{invoiceID: &id, detail: "metadata invoice does not match payment attempt"}, nil
	case c.Currency != "" && attempt.Currency != "" && !strings.EqualFold(c.Currency, attempt.Currency):
		id := attempt.InvoiceID
		return uuid.Nil, &rejection{invoiceID: &id, detail: fmt.Sprintf("currency %s does not match attempt currency %s", c.Currency, attempt.Currency)}, nil
	}
	return attempt.InvoiceID, nil, nil
}

// reject records a permanent outcome in its own transaction; the failed
// apply has been rolled back.
func (s *Service) reject(ctx context.Context, c gateway.Confirmation, rej *rejection) (*gateway.ApplyResult, error) {
	var result *gateway.ApplyResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		detail := rej.detail
		row := &models.AppliedReference{
			Reference: c.Reference,
			InvoiceID: rej.invoiceID,
			Outcome:   enums.ReferenceRejected,
			Detail:    &detail,
			Source:    c.Source,
		}
		applied := s.applied.WithTx(tx)
		created, err := applied.CreateIfAbsent(ctx, row)
		if err != nil {
			return db.Classify(err, "record rejected reference")
		}
		if !created {
			existing, err := applied.Find(ctx, c.Reference)
			if err != nil {
				return db.Classify(err, "load applied reference")
			}
			result = resultFromRow(existing, true)
			return nil
		}
		if err := s.attempts.WithTx(tx).MarkResolved(ctx, c.Reference, enums.AttemptRejected, &detail, s.now()); err != nil {
			return db.Classify(err, "resolve payment attempt")
		}
		result = resultFromRow(row, false)
		return nil
	})
	if err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record rejected confirmation")
		}
		return nil, err
	}
	if s.logg != nil && !result.Duplicate {
		s.logg.Warn(ctx, "paystack confirmation rejected: "+rej.detail)
	}
	return result, nil
}

func (s *Service) duplicate(ctx context.Context, reference string) *gateway.ApplyResult {
	row, err := s.applied.Find(ctx, reference)
	if err != nil {
		return &gateway.ApplyResult{Reference: reference, Duplicate: true}
	}
	return resultFromRow(row, true)
}

func resultFromRow(row *models.AppliedReference, duplicate bool) *gateway.ApplyResult {
	res := &gateway.ApplyResult{
		Reference: row.Reference,
		Outcome:   row.Outcome,
		Duplicate: duplicate,
		InvoiceID: row.InvoiceID,
		PaymentID: row.PaymentID,
	}
	if row.Detail != nil {
		res.Detail = *row.Detail
	}
	return res
}

// permanent reports business rule failures a redelivery cannot fix.
func permanent(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Reason() == pkgerrors.ReasonConcurrentUpdate {
		return false
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict, pkgerrors.CodeStateConflict:
		return true
	}
	return false
}
