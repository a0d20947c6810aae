package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/internal/invoices"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/paystack"
)

const (
	maxReferenceRetries = 3
	initiateLimit       = 5
	initiateWindow      = 10 * time.Minute
	defaultEmailHost    = "biskaken.com"
	referrer            = "Biskaken Auto Services"
)

// Service starts and verifies gateway charges. It never changes invoice
// state; successful charges are reconciled by the Applier.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*PaymentStatus, error)
	VerifyAndApply(ctx context.Context, reference string) (*VerifyResult, error)
	ExpireStaleAttempts(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Processor is the payment processor API.
type Processor interface {
	ChargeMobileMoney(ctx context.Context, req paystack.MobileMoneyChargeRequest) (*paystack.ChargeResult, error)
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.ChargeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
	Currency() string
}

// Applier reconciles a confirmed charge against its invoice.
type Applier interface {
	Apply(ctx context.Context, c Confirmation) (*ApplyResult, error)
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// ServiceParams wires the gateway adapter. Limiter and Applier are optional.
type ServiceParams struct {
	Processor   Processor
	Attempts    AttemptRepository
	Invoices    invoices.Repository
	Customers   invoices.CustomerLookup
	Applier     Applier
	Limiter     rateLimiter
	Logger      *logger.Logger
	EmailHost   string
	CallbackURL string
	Clock       func() time.Time
}

type service struct {
	processor   Processor
	attempts    AttemptRepository
	invoices    invoices.Repository
	customers   invoices.CustomerLookup
	applier     Applier
	limiter     rateLimiter
	logg        *logger.Logger
	emailHost   string
	callbackURL string
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Processor == nil:
		return nil, fmt.Errorf("payment processor required")
	case params.Attempts == nil:
		return nil, fmt.Errorf("attempt repository required")
	case params.Invoices == nil:
		return nil, fmt.Errorf("invoice repository required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customer lookup required")
	}
	host := strings.TrimSpace(params.EmailHost)
	if host == "" {
		host = defaultEmailHost
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		processor:   params.Processor,
		attempts:    params.Attempts,
		invoices:    params.Invoices,
		customers:   params.Customers,
		applier:     params.Applier,
		limiter:     params.Limiter,
		logg:        params.Logger,
		emailHost:   host,
		callbackURL: params.CallbackURL,
		now:         clock,
	}, nil
}

// SetApplier completes wiring when the applier itself depends on this service.
func SetApplier(svc Service, applier Applier) {
	if s, ok := svc.(*service); ok {
		s.applier = applier
	}
}

func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown provider %q", input.Provider))
	}
	inv, err := s.invoices.FindByID(ctx, input.InvoiceID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
				WithReason(pkgerrors.ReasonInvoiceNotFound)
		}
		return nil, db.Classify(err, "load invoice")
	}
	switch inv.Status {
	case enums.InvoiceStatusDraft:
		return nil, invoices.NotPayable(inv.Status)
	case enums.InvoiceStatusPaid:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice is already paid").WithReason(pkgerrors.ReasonAlreadyPaid)
	case enums.InvoiceStatusCancelled:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice is cancelled").WithReason(pkgerrors.ReasonInvoiceCancelled)
	}
	amount := invoices.Outstanding(inv.Total, invoices.SumPayments(inv.Payments))
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice has no outstanding balance").WithReason(pkgerrors.ReasonAlreadyPaid)
	}

	customer, err := s.customers.FindCustomer(ctx, nil, inv.CustomerID)
	if err != nil {
		return nil, err
	}
	contact, email, err := s.resolveContact(input, customer)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, "gateway:initiate:"+inv.ID.String(), initiateLimit, initiateWindow)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check initiate rate limit")
		}
		if !allowed {
			return nil, pkgerrors.New(pkgerrors.CodeRateLimit, "too many payment attempts for this invoice")
		}
	}

	attempt, err := s.createAttempt(ctx, inv, input.Provider, contact, amount)
	if err != nil {
		return nil, err
	}
	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithReference(s.logg.WithInvoiceID(ctx, inv.ID.String()), attempt.Reference)
	}

	meta := paystack.Metadata{
		InvoiceID:     inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    customer.ID.String(),
		CustomerName:  customer.Name,
		Referrer:      referrer,
	}
	var res *paystack.ChargeResult
	if input.Provider.IsMobileMoney() {
		meta.Phone = contact
		res, err = s.processor.ChargeMobileMoney(ctx, paystack.MobileMoneyChargeRequest{
			Email:     email,
			Amount:    amount,
			Phone:     contact,
			Provider:  input.Provider.PaystackCode(),
			Reference: attempt.Reference,
			Metadata:  meta,
		})
	} else {
		res, err = s.processor.InitializeTransaction(ctx, paystack.InitializeRequest{
			Email:       email,
			Amount:      amount,
			Reference:   attempt.Reference,
			CallbackURL: s.callbackURL,
			Channels:    []string{"card", "mobile_money", "bank_transfer"},
			Metadata:    meta,
		})
	}
	if err != nil {
		msg := err.Error()
		if markErr := s.attempts.MarkResolved(ctx, attempt.Reference, enums.AttemptFailed, &msg, s.now()); markErr != nil && s.logg != nil {
			s.logg.Error(logCtx, "failed to mark payment attempt failed", markErr)
		}
		if s.logg != nil {
			s.logg.Warn(logCtx, "gateway initiate failed: "+msg)
		}
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(logCtx, "gateway payment initiated")
	}

	return &InitiateResult{
		Reference:        attempt.Reference,
		Provider:         input.Provider,
		Amount:           amount.StringFixed(2),
		Currency:         attempt.Currency,
		Status:           res.Status,
		DisplayText:      res.DisplayText,
		AuthorizationURL: res.AuthorizationURL,
		AccessCode:       res.AccessCode,
	}, nil
}

func (s *service) resolveContact(input InitiateInput, customer *models.Customer) (contact, email string, err error) {
	raw := strings.TrimSpace(input.PayerContact)
	if input.Provider.IsMobileMoney() {
		if raw == "" {
			raw = customer.Phone
		}
		phone, err := NormalizePhone(raw)
		if err != nil {
			return "", "", err
		}
		return phone, FallbackEmail(phone, s.emailHost), nil
	}

	if strings.Contains(raw, "@") {
		return raw, raw, nil
	}
	if raw == "" && customer.Email != nil && strings.TrimSpace(*customer.Email) != "" {
		return *customer.Email, *customer.Email, nil
	}
	if raw == "" {
		raw = customer.Phone
	}
	if raw == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "an email or phone number is required for card payments")
	}
	phone, err := NormalizePhone(raw)
	if err != nil {
		return "", "", err
	}
	return phone, FallbackEmail(phone, s.emailHost), nil
}

// ReferenceFor builds the n-th attempt reference for an invoice.
func ReferenceFor(provider enums.GatewayProvider, invoiceNumber string, n int64) string {
	ref := provider.ReferencePrefix() + "_" + invoiceNumber
	if n >= 2 {
		ref = fmt.Sprintf("%s_%d", ref, n)
	}
	return ref
}

func (s *service) createAttempt(ctx context.Context, inv *models.Invoice, provider enums.GatewayProvider, contact string, amount decimal.Decimal) (*models.PaymentAttempt, error) {
	count, err := s.attempts.CountForInvoice(ctx, inv.ID)
	if err != nil {
		return nil, db.Classify(err, "count payment attempts")
	}
	for i := int64(1); i <= maxReferenceRetries; i++ {
		attempt := &models.PaymentAttempt{
			InvoiceID:    inv.ID,
			Reference:    ReferenceFor(provider, inv.InvoiceNumber, count+i),
			Provider:     provider,
			Amount:       amount,
			Currency:     s.processor.Currency(),
			PayerContact: contact,
			Status:       enums.AttemptPending,
		}
		err := s.attempts.Create(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if !db.IsUniqueViolation(err, ReferenceIndex) {
			return nil, db.Classify(err, "record payment attempt")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique payment reference").
		WithReason(pkgerrors.ReasonDuplicateReference)
}

func (s *service) Verify(ctx context.Context, reference string) (*PaymentStatus, error) {
	tx, err := s.processor.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	status := &PaymentStatus{
		Reference:       tx.Reference,
		Status:          tx.Status,
		Amount:          tx.Amount,
		Currency:        tx.Currency,
		Channel:         tx.Channel,
		PaidAt:          tx.PaidAt,
		GatewayResponse: tx.GatewayResponse,
	}
	if id, err := uuid.Parse(tx.Metadata.InvoiceID); err == nil {
		status.InvoiceID = &id
	} else if attempt, err := s.attempts.FindByReference(ctx, tx.Reference); err == nil {
		status.InvoiceID = &attempt.InvoiceID
	}
	return status, nil
}

func (s *service) VerifyAndApply(ctx context.Context, reference string) (*VerifyResult, error) {
	if s.applier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reconciliation not configured")
	}
	status, err := s.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	result := &VerifyResult{Status: *status}
	switch status.Status {
	case paystack.StatusSuccess:
	case paystack.StatusFailed, paystack.StatusAbandoned, paystack.StatusReversed:
		resp := status.GatewayResponse
		if err := s.attempts.MarkResolved(ctx, status.Reference, enums.AttemptFailed, &resp, s.now()); err != nil {
			return nil, db.Classify(err, "mark payment attempt failed")
		}
		return result, nil
	default:
		return result, nil
	}

	applied, err := s.applier.Apply(ctx, Confirmation{
		Reference: status.Reference,
		Amount:    status.Amount,
		Currency:  status.Currency,
		Channel:   status.Channel,
		PaidAt:    status.PaidAt,
		InvoiceID: status.InvoiceID,
		Source:    SourceVerify,
	})
	if err != nil {
		return nil, err
	}
	result.Apply = applied
	return result, nil
}

func (s *service) ExpireStaleAttempts(ctx context.Context, olderThan time.Duration) (int64, error) {
	now := s.now()
	n, err := s.attempts.ExpirePendingBefore(ctx, now.Add(-olderThan), now)
	if err != nil {
		return 0, db.Classify(err, "expire payment attempts")
	}
	return n, nil
}
