package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/internal/inventory"
	"github.com/plunoo/biskakenauto-sub000/internal/ledger"
	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
	"github.com/plunoo/biskakenauto-sub000/pkg/pagination"
)

const defaultNumberPrefix = "INV"

// Service is the invoice aggregate.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*InvoiceDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*InvoiceDTO, error)
	Send(ctx context.Context, id uuid.UUID, actor auth.Actor) (*InvoiceDTO, error)
	Cancel(ctx context.Context, id uuid.UUID, actor auth.Actor) (*InvoiceDTO, error)
	Restock(ctx context.Context, id uuid.UUID, actor auth.Actor) (*InvoiceDTO, error)
	Delete(ctx context.Context, id uuid.UUID, actor auth.Actor) error
	Get(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error)
	GetByNumber(ctx context.Context, number string) (*InvoiceDTO, error)
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
	ListOverdue(ctx context.Context, now time.Time) ([]InvoiceDTO, error)
	SendReminder(ctx context.Context, id uuid.UUID, actor auth.Actor) error
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
	RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error)
	History(ctx context.Context, id uuid.UUID, types ...enums.InvoiceEventType) ([]EventDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, req inventory.ReservationRequest) error
	Restock(ctx context.Context, tx *gorm.DB, req inventory.RestockRequest) error
}

// CustomerLookup resolves the customer and job records invoices reference.
type CustomerLookup interface {
	FindCustomer(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Customer, error)
	FindJob(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Job, error)
}

type eventRecorder interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordEventInput) (*models.InvoiceEvent, error)
	History(ctx context.Context, invoiceID uuid.UUID, types ...enums.InvoiceEventType) ([]models.InvoiceEvent, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DocumentView is everything a renderer needs to print an invoice.
type DocumentView struct {
	Invoice  InvoiceDTO
	Customer models.Customer
}

// Renderer produces a printable document for an invoice.
type Renderer interface {
	RenderInvoice(ctx context.Context, view DocumentView) ([]byte, error)
}

// ServiceParams wires the invoice aggregate.
type ServiceParams struct {
	Repository   Repository
	TxRunner     txRunner
	Inventory    stockLedger
	Customers    CustomerLookup
	Ledger       eventRecorder
	Outbox       outboxEmitter
	Renderer     Renderer
	Logger       *logger.Logger
	NumberPrefix string
	Clock        func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory stockLedger
	customers CustomerLookup
	ledger    eventRecorder
	outbox    outboxEmitter
	renderer  Renderer
	logg      *logger.Logger
	prefix    string
	now       func() time.Time
}

// NewService constructs the invoice aggregate.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer lookup required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("invoice event ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	prefix := params.NumberPrefix
	if prefix == "" {
		prefix = defaultNumberPrefix
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:      params.Repository,
		tx:        params.TxRunner,
		inventory: params.Inventory,
		customers: params.Customers,
		ledger:    params.Ledger,
		outbox:    params.Outbox,
		renderer:  params.Renderer,
		logg:      params.Logger,
		prefix:    prefix,
		now:       clock,
	}, nil
}

// FormatNumber renders the n-th invoice number, zero padded to four digits.
func FormatNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// itemPartForeignKey is the Postgres default name of invoice_items.part_id's FK.
const itemPartForeignKey = "invoice_items_part_id_fkey"

func (s *service) Create(ctx context.Context, input CreateInput) (*InvoiceDTO, error) {
	totals, err := ComputeTotals(input.Items, input.Tax, input.Discount)
	if err != nil {
		return nil, err
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if _, err := s.customers.FindCustomer(ctx, nil, input.CustomerID); err != nil {
		return nil, err
	}
	if input.JobID != nil {
		job, err := s.customers.FindJob(ctx, nil, *input.JobID)
		if err != nil {
			return nil, err
		}
		if job.CustomerID != input.CustomerID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "job belongs to a different customer").
				WithReason(pkgerrors.ReasonJobMismatch).
				WithDetails(map[string]any{"jobId": job.ID, "customerId": input.CustomerID})
		}
	}

	now := s.now()
	status := enums.InvoiceStatusDraft
	if input.Send {
		status = enums.InvoiceStatusSent
	}

	var invoiceID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		seq, err := repo.NextSequence(ctx, SequenceInvoiceNumber)
		if err != nil {
			return db.Classify(err, "allocate invoice number")
		}

		invoice := &models.Invoice{
			InvoiceNumber: FormatNumber(s.prefix, seq),
			CustomerID:    input.CustomerID,
			JobID:         input.JobID,
			IssueDate:     now,
			DueDate:       input.DueDate,
			Subtotal:      totals.Subtotal,
			Tax:           totals.Tax,
			Discount:      totals.Discount,
			Total:         totals.Total,
			Status:        status,
			Notes:         input.Notes,
			Version:       1,
		}
		if err := repo.Create(ctx, invoice); err != nil {
			if db.IsUniqueViolation(err, "ux_invoices_number") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "invoice number already allocated").
					WithReason(pkgerrors.ReasonConcurrentUpdate)
			}
			return db.Classify(err, "insert invoice")
		}
		invoiceID = invoice.ID

		// Reservations run first so unknown parts fail as PART_NOT_FOUND.
		for _, in := range input.Items {
			if in.PartID == nil {
				continue
			}
			if err := s.inventory.Reserve(ctx, tx, inventory.ReservationRequest{
				PartID:      *in.PartID,
				Quantity:    in.Quantity,
				InvoiceID:   &invoice.ID,
				ActorUserID: input.Actor.UserID,
			}); err != nil {
				return err
			}
		}

		items := make([]models.InvoiceItem, len(input.Items))
		for i, in := range input.Items {
			items[i] = models.InvoiceItem{
				InvoiceID:   invoice.ID,
				Position:    i + 1,
				Description: in.Description,
				Quantity:    in.Quantity,
				UnitPrice:   in.UnitPrice,
				LineTotal:   totals.LineTotals[i],
				PartID:      in.PartID,
			}
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			if db.IsForeignKeyViolation(err, itemPartForeignKey) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "part not found").
					WithReason(pkgerrors.ReasonPartNotFound)
			}
			return db.Classify(err, "insert invoice items")
		}

		_, err = s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
			InvoiceID:   invoice.ID,
			ActorUserID: input.Actor.UserID,
			Type:        enums.InvoiceEventCreated,
			Amount:      &invoice.Total,
			Metadata: map[string]any{
				"invoiceNumber": invoice.InvoiceNumber,
				"status":        invoice.Status,
				"items":         len(items),
			},
		})
		return db.Classify(err, "record invoice created")
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithInvoiceID(ctx, invoiceID.String())
		s.logg.Info(logCtx, "invoice created")
	}
	return s.Get(ctx, invoiceID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*InvoiceDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv, err := s.lock(ctx, repo, id)
		if err != nil {
			return err
		}
		if inv.Status == enums.InvoiceStatusCancelled {
			return invalidTransition(inv.Status, "update")
		}
		if inv.Status == enums.InvoiceStatusPaid && !input.Actor.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeValidation, "paid invoices cannot be modified").
				WithReason(pkgerrors.ReasonImmutable).
				WithDetails(map[string]any{"invoiceId": inv.ID, "status": inv.Status})
		}

		tax, discount := inv.Tax, inv.Discount
		if input.Tax != nil {
			tax = *input.Tax
		}
		if input.Discount != nil {
			discount = *input.Discount
		}
		totals, err := Recompute(inv.Subtotal, tax, discount)
		if err != nil {
			return err
		}
		paid := SumPayments(inv.Payments)
		if totals.Total.LessThan(paid) {
			return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf(
				"new total %s is below the %s already paid", totals.Total.StringFixed(2), paid.StringFixed(2),
			)).WithReason(pkgerrors.ReasonTotalBelowPaid)
		}

		dueDate := inv.DueDate
		if input.DueDate != nil {
			dueDate = input.DueDate
		}
		now := s.now()
		next := DeriveStatus(inv.Status, totals.Total, paid, dueDate, now)

		fields := map[string]any{
			"tax":      totals.Tax,
			"discount": totals.Discount,
			"total":    totals.Total,
			"due_date": dueDate,
			"status":   next,
		}
		if input.Notes != nil {
			fields["notes"] = input.Notes
		}
		becamePaid := next == enums.InvoiceStatusPaid && inv.Status != enums.InvoiceStatusPaid
		if becamePaid {
			fields["paid_at"] = now
		} else if next != enums.InvoiceStatusPaid {
			fields["paid_at"] = nil
		}
		if err := s.save(ctx, repo, inv, fields); err != nil {
			return err
		}

		changes := map[string]any{"status": next, "total": totals.Total.StringFixed(2)}
		if input.DueDate != nil {
			changes["dueDate"] = input.DueDate
		}
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
			InvoiceID:   inv.ID,
			ActorUserID: input.Actor.UserID,
			Type:        enums.InvoiceEventUpdated,
			Metadata:    changes,
		}); err != nil {
			return db.Classify(err, "record invoice updated")
		}

		if becamePaid {
			inv.Total = totals.Total
			return s.emitPaid(ctx, tx, inv, now, input.Actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) Send(ctx context.Context, id uuid.UUID, actor auth.Actor) (*InvoiceDTO, error) {
	return s.transition(ctx, id, actor, "send", enums.InvoiceEventSent, func(inv *models.Invoice, _ *gorm.DB) (map[string]any, error) {
		if inv.Status != enums.InvoiceStatusDraft {
			return nil, invalidTransition(inv.Status, "send")
		}
		return map[string]any{"status": enums.InvoiceStatusSent}, nil
	})
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, actor auth.Actor) (*InvoiceDTO, error) {
	return s.transition(ctx, id, actor, "cancel", enums.InvoiceEventCancelled, func(inv *models.Invoice, _ *gorm.DB) (map[string]any, error) {
		if !inv.Status.Cancellable() {
			return nil, invalidTransition(inv.Status, "cancel")
		}
		if len(inv.Payments) > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice has recorded payments and cannot be cancelled").
				WithReason(pkgerrors.ReasonHasPayments)
		}
		return map[string]any{"status": enums.InvoiceStatusCancelled, "cancelled_at": s.now()}, nil
	})
}

func (s *service) Restock(ctx context.Context, id uuid.UUID, actor auth.Actor) (*InvoiceDTO, error) {
	if !actor.CanManage() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only managers and administrators can restock an invoice")
	}
	return s.transition(ctx, id, actor, "restock", enums.InvoiceEventRestocked, func(inv *models.Invoice, tx *gorm.DB) (map[string]any, error) {
		if inv.Status != enums.InvoiceStatusCancelled {
			return nil, invalidTransition(inv.Status, "restock")
		}
		if inv.RestockedAt != nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice stock has already been returned").
				WithReason(pkgerrors.ReasonAlreadyRestocked)
		}
		var items []models.InvoiceItem
		if err := tx.WithContext(ctx).Where("invoice_id = ? AND part_id IS NOT NULL", inv.ID).Order("position ASC").Find(&items).Error; err != nil {
			return nil, db.Classify(err, "load invoice items")
		}
		reason := fmt.Sprintf("restock of cancelled invoice %s", inv.InvoiceNumber)
		for _, item := range items {
			if err := s.inventory.Restock(ctx, tx, inventory.RestockRequest{
				PartID:      *item.PartID,
				Quantity:    item.Quantity,
				InvoiceID:   &inv.ID,
				Reason:      &reason,
				ActorUserID: actor.UserID,
			}); err != nil {
				return nil, err
			}
		}
		return map[string]any{"restocked_at": s.now()}, nil
	})
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor auth.Actor) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv, err := s.lock(ctx, repo, id)
		if err != nil {
			return err
		}
		if inv.Status == enums.InvoiceStatusPaid {
			return pkgerrors.New(pkgerrors.CodeConflict, "paid invoices cannot be deleted").
				WithReason(pkgerrors.ReasonAlreadyPaid)
		}
		if len(inv.Payments) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "invoice has recorded payments and cannot be deleted").
				WithReason(pkgerrors.ReasonHasPayments)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return db.Classify(err, "delete invoice")
		}
		if s.logg != nil {
			logCtx := s.logg.WithInvoiceID(ctx, id.String())
			if actor.UserID != nil {
				logCtx = s.logg.WithUserID(logCtx, actor.UserID.String())
			}
			s.logg.Info(logCtx, "invoice deleted")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, invoiceNotFound(id)
		}
		return nil, db.Classify(err, "load invoice")
	}
	dto := ToDTO(*inv)
	return &dto, nil
}

// History is the invoice's audit trail, oldest first, optionally narrowed
// to the given event types.
func (s *service) History(ctx context.Context, id uuid.UUID, types ...enums.InvoiceEventType) ([]EventDTO, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return nil, invoiceNotFound(id)
		}
		return nil, db.Classify(err, "load invoice")
	}
	events, err := s.ledger.History(ctx, id, types...)
	if err != nil {
		return nil, db.Classify(err, "load invoice history")
	}
	out := make([]EventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, ToEventDTO(e))
	}
	return out, nil
}

func (s *service) GetByNumber(ctx context.Context, number string) (*InvoiceDTO, error) {
	inv, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
				WithReason(pkgerrors.ReasonInvoiceNotFound).
				WithDetails(map[string]any{"invoiceNumber": number})
		}
		return nil, db.Classify(err, "load invoice")
	}
	dto := ToDTO(*inv)
	return &dto, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown invoice status filter")
	}
	if _, err := pagination.Decode(filter.Page.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, db.Classify(err, "list invoices")
	}
	rows, next := pagination.Trim(rows, filter.Page, func(inv models.Invoice) pagination.Key {
		return pagination.Key{CreatedAt: inv.CreatedAt, ID: inv.ID}
	})
	result := &ListResult{Invoices: make([]InvoiceDTO, 0, len(rows)), NextCursor: next}
	for _, inv := range rows {
		result.Invoices = append(result.Invoices, ToDTO(inv))
	}
	return result, nil
}

func (s *service) ListOverdue(ctx context.Context, now time.Time) ([]InvoiceDTO, error) {
	rows, err := s.repo.ListOverdue(ctx, now, 0)
	if err != nil {
		return nil, db.Classify(err, "list overdue invoices")
	}
	out := make([]InvoiceDTO, 0, len(rows))
	for _, inv := range rows {
		if SumPayments(inv.Payments).GreaterThanOrEqual(inv.Total) {
			continue
		}
		out = append(out, ToDTO(inv))
	}
	return out, nil
}

func (s *service) SendReminder(ctx context.Context, id uuid.UUID, actor auth.Actor) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inv, err := s.lock(ctx, s.repo.WithTx(tx), id)
		if err != nil {
			return err
		}
		if inv.Status != enums.InvoiceStatusSent && inv.Status != enums.InvoiceStatusOverdue {
			return invalidTransition(inv.Status, "remind")
		}
		customer, err := s.customers.FindCustomer(ctx, tx, inv.CustomerID)
		if err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, reminderEvent(inv, customer, actor)); err != nil {
			return db.Classify(err, "queue payment reminder")
		}
		_, err = s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
			InvoiceID:   inv.ID,
			ActorUserID: actor.UserID,
			Type:        enums.InvoiceEventReminderSent,
		})
		return db.Classify(err, "record reminder")
	})
}

// MarkOverdue moves every unpaid SENT invoice past its due date to OVERDUE,
// one transaction per invoice.
func (s *service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.repo.ListOverdue(ctx, now, 0)
	if err != nil {
		return 0, db.Classify(err, "list overdue invoices")
	}
	marked := 0
	var errs []error
	for _, c := range candidates {
		if c.Status != enums.InvoiceStatusSent {
			continue
		}
		changed := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			inv, err := s.lock(ctx, repo, c.ID)
			if err != nil {
				return err
			}
			if inv.Status != enums.InvoiceStatusSent || inv.DueDate == nil || !inv.DueDate.Before(now) {
				return nil
			}
			if SumPayments(inv.Payments).GreaterThanOrEqual(inv.Total) {
				return nil
			}
			if err := s.save(ctx, repo, inv, map[string]any{"status": enums.InvoiceStatusOverdue}); err != nil {
				return err
			}
			if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
				InvoiceID: inv.ID,
				Type:      enums.InvoiceEventOverdue,
			}); err != nil {
				return db.Classify(err, "record overdue")
			}
			customer, err := s.customers.FindCustomer(ctx, tx, inv.CustomerID)
			if err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, overdueEvent(inv, customer)); err != nil {
				return db.Classify(err, "queue overdue notice")
			}
			changed = true
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("invoice %s: %w", c.InvoiceNumber, err))
			continue
		}
		if changed {
			marked++
		}
	}
	return marked, multierr.Combine(errs...)
}

func (s *service) RenderPDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	if s.renderer == nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeDependency, "document renderer not configured")
	}
	inv, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	customer, err := s.customers.FindCustomer(ctx, nil, inv.CustomerID)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.renderer.RenderInvoice(ctx, DocumentView{Invoice: *inv, Customer: *customer})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render invoice document")
	}
	return doc, inv.InvoiceNumber + ".pdf", nil
}

type transitionFn func(inv *models.Invoice, tx *gorm.DB) (map[string]any, error)

func (s *service) transition(ctx context.Context, id uuid.UUID, actor auth.Actor, action string, eventType enums.InvoiceEventType, fn transitionFn) (*InvoiceDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv, err := s.lock(ctx, repo, id)
		if err != nil {
			return err
		}
		fields, err := fn(inv, tx)
		if err != nil {
			return err
		}
		if err := s.save(ctx, repo, inv, fields); err != nil {
			return err
		}
		_, err = s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
			InvoiceID:   inv.ID,
			ActorUserID: actor.UserID,
			Type:        eventType,
			Metadata:    map[string]any{"action": action, "from": inv.Status},
		})
		return db.Classify(err, "record "+action)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *service) lock(ctx context.Context, repo Repository, id uuid.UUID) (*models.Invoice, error) {
	inv, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, invoiceNotFound(id)
		}
		return nil, db.Classify(err, "lock invoice")
	}
	return inv, nil
}

func (s *service) save(ctx context.Context, repo Repository, inv *models.Invoice, fields map[string]any) error {
	ok, err := repo.UpdateFields(ctx, inv.ID, inv.Version, fields)
	if err != nil {
		return db.Classify(err, "update invoice")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "invoice was modified concurrently").
			WithReason(pkgerrors.ReasonConcurrentUpdate)
	}
	inv.Version++
	return nil
}

func (s *service) emitPaid(ctx context.Context, tx *gorm.DB, inv *models.Invoice, paidAt time.Time, actor auth.Actor) error {
	customer, err := s.customers.FindCustomer(ctx, tx, inv.CustomerID)
	if err != nil {
		return err
	}
	return db.Classify(s.outbox.EmitIfNotExists(ctx, tx, PaidEvent(inv, customer, paidAt, actor)), "queue paid notification")
}

func invoiceNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found").
		WithReason(pkgerrors.ReasonInvoiceNotFound).
		WithDetails(map[string]any{"invoiceId": id})
}

// NotPayable is returned when a payment targets a DRAFT invoice. Only SENT
// and OVERDUE invoices take payments.
func NotPayable(status enums.InvoiceStatus) error {
	return invalidTransition(status, "pay")
}

func invalidTransition(status enums.InvoiceStatus, action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s an invoice in status %s", action, status)).
		WithReason(pkgerrors.ReasonInvalidTransition).
		WithDetails(map[string]any{"status": status, "action": action})
}
