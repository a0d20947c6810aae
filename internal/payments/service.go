package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/internal/invoices"
	"github.com/plunoo/biskakenauto-sub000/internal/ledger"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/metrics"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
)

// Service records payments against invoices and keeps the invoice balance
// and status consistent with them.
type Service interface {
	RecordPayment(ctx context.Context, input RecordInput) (*RecordResult, error)
	// RecordPaymentTx applies the payment on the caller's transaction so it
	// commits together with the caller's own writes.
	RecordPaymentTx(ctx context.Context, tx *gorm.DB, input RecordInput) (*RecordResult, error)
	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]invoices.PaymentDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordEventInput) (*models.InvoiceEvent, error)
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the payment recorder.
type ServiceParams struct {
	Repository Repository
	Invoices   invoices.Repository
	Customers  invoices.CustomerLookup
	Ledger     eventRecorder
	Outbox     outboxEmitter
	TxRunner   txRunner
	Metrics    *metrics.PaymentMetrics
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo      Repository
	invoices  invoices.Repository
	customers invoices.CustomerLookup
	ledger    eventRecorder
	outbox    outboxEmitter
	tx        txRunner
	metrics   *metrics.PaymentMetrics
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("payment repository required")
	case params.Invoices == nil:
		return nil, fmt.Errorf("invoice repository required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customer lookup required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("invoice event ledger required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.TxRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repository,
		invoices:  params.Invoices,
		customers: params.Customers,
		ledger:    params.Ledger,
		outbox:    params.Outbox,
		tx:        params.TxRunner,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       clock,
	}, nil
}

func (s *service) RecordPayment(ctx context.Context, input RecordInput) (*RecordResult, error) {
	var result *RecordResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.RecordPaymentTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithInvoiceID(ctx, input.InvoiceID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_id": result.Payment.ID.String(),
			"method":     input.Method,
			"status":     result.NewStatus,
		})
		s.logg.Info(logCtx, "payment recorded")
	}
	return result, nil
}

func (s *service) RecordPaymentTx(ctx context.Context, tx *gorm.DB, input RecordInput) (*RecordResult, error) {
	result, err := s.apply(ctx, tx, input)
	s.observe(input.Method, err)
	return result, err
}

func (s *service) apply(ctx context.Context, tx *gorm.DB, input RecordInput) (*RecordResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment requires a transaction")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.Method)).
			WithReason(pkgerrors.ReasonInvalidMethod)
	}
	if err := invoices.ValidateMoney("amount", input.Amount, false); err != nil {
		return nil, err
	}
	if input.Reference != nil {
		trimmed := strings.TrimSpace(*input.Reference)
		if trimmed == "" {
			input.Reference = nil
		} else {
			input.Reference = &trimmed
		}
	}

	invoiceRepo := s.invoices.WithTx(tx)
	inv, err := invoiceRepo.FindByIDForUpdate(ctx, input.InvoiceID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
				WithReason(pkgerrors.ReasonInvoiceNotFound).
				WithDetails(map[string]any{"invoiceId": input.InvoiceID})
		}
		return nil, db.Classify(err, "lock invoice")
	}
	switch inv.Status {
	case enums.InvoiceStatusDraft:
		return nil, invoices.NotPayable(inv.Status)
	case enums.InvoiceStatusCancelled:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cannot record a payment on a cancelled invoice").
			WithReason(pkgerrors.ReasonInvoiceCancelled)
	case enums.InvoiceStatusPaid:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice is already paid").
			WithReason(pkgerrors.ReasonAlreadyPaid)
	}

	paid := invoices.SumPayments(inv.Payments)
	outstanding := invoices.Outstanding(inv.Total, paid)
	if input.Amount.GreaterThan(outstanding) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf(
			"payment amount exceeds outstanding balance. Outstanding balance is %s",
			outstanding.StringFixed(2),
		)).WithReason(pkgerrors.ReasonAmountExceedsOutstanding).WithDetails(map[string]any{
			"outstanding": outstanding.StringFixed(2),
			"amount":      input.Amount.StringFixed(2),
		})
	}

	now := s.now()
	recordedAt := now
	if input.RecordedAt != nil {
		recordedAt = input.RecordedAt.UTC()
	}
	payment := &models.Payment{
		InvoiceID:  inv.ID,
		Amount:     input.Amount,
		Method:     input.Method,
		Reference:  input.Reference,
		Notes:      input.Notes,
		RecordedBy: input.Actor.UserID,
		RecordedAt: recordedAt,
	}
	if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
		if db.IsUniqueViolation(err, referenceIndex) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment reference already recorded").
				WithReason(pkgerrors.ReasonDuplicateReference)
		}
		return nil, db.Classify(err, "insert payment")
	}

	newPaid := paid.Add(input.Amount)
	status := inv.Status
	fields := map[string]any{}
	becamePaid := newPaid.GreaterThanOrEqual(inv.Total)
	if becamePaid {
		status = enums.InvoiceStatusPaid
		fields["status"] = status
		fields["paid_at"] = now
	}
	ok, err := invoiceRepo.UpdateFields(ctx, inv.ID, inv.Version, fields)
	if err != nil {
		return nil, db.Classify(err, "update invoice balance")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice was modified concurrently").
			WithReason(pkgerrors.ReasonConcurrentUpdate)
	}

	metadata := map[string]any{"paymentId": payment.ID, "method": payment.Method}
	if payment.Reference != nil {
		metadata["reference"] = *payment.Reference
	}
	if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
		InvoiceID:   inv.ID,
		ActorUserID: input.Actor.UserID,
		Type:        enums.InvoiceEventPaymentRecorded,
		Amount:      &payment.Amount,
		Metadata:    metadata,
	}); err != nil {
		return nil, db.Classify(err, "record payment event")
	}

	if becamePaid {
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
			InvoiceID:   inv.ID,
			ActorUserID: input.Actor.UserID,
			Type:        enums.InvoiceEventPaid,
			Amount:      &newPaid,
		}); err != nil {
			return nil, db.Classify(err, "record paid event")
		}
		customer, err := s.customers.FindCustomer(ctx, tx, inv.CustomerID)
		if err != nil {
			return nil, err
		}
		inv.Payments = append(inv.Payments, *payment)
		if err := s.outbox.EmitIfNotExists(ctx, tx, invoices.PaidEvent(inv, customer, now, input.Actor)); err != nil {
			return nil, db.Classify(err, "queue paid notification")
		}
	}

	return &RecordResult{
		Payment:     invoices.ToPaymentDTO(*payment),
		NewStatus:   status,
		TotalPaid:   newPaid.StringFixed(2),
		Outstanding: invoices.Outstanding(inv.Total, newPaid).StringFixed(2),
	}, nil
}

func (s *service) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]invoices.PaymentDTO, error) {
	if _, err := s.invoices.FindByID(ctx, invoiceID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
				WithReason(pkgerrors.ReasonInvoiceNotFound)
		}
		return nil, db.Classify(err, "load invoice")
	}
	rows, err := s.repo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, db.Classify(err, "list payments")
	}
	out := make([]invoices.PaymentDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, invoices.ToPaymentDTO(p))
	}
	return out, nil
}

func (s *service) observe(method enums.PaymentMethod, err error) {
	if err == nil {
		s.metrics.IncRecorded(string(method), "applied")
		return
	}
	outcome := "error"
	if typed := pkgerrors.As(err); typed != nil && typed.Reason() != "" {
		outcome = strings.ToLower(string(typed.Reason()))
	}
	s.metrics.IncRecorded(string(method), outcome)
}
