package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/internal/customers"
	"github.com/plunoo/biskakenauto-sub000/internal/inventory"
	"github.com/plunoo/biskakenauto-sub000/internal/ledger"
	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/dbtest"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
	"github.com/plunoo/biskakenauto-sub000/pkg/pagination"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      Service
	conn     *gorm.DB
	customer *models.Customer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.NewClient(t)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	stock, err := inventory.NewService(inventory.NewRepository(conn), client, emitter)
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	events, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		TxRunner:   client,
		Inventory:  stock,
		Customers:  customers.NewRepository(conn),
		Ledger:     events,
		Outbox:     emitter,
		Clock:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("invoice service: %v", err)
	}
	return fixture{
		svc:      svc,
		conn:     conn,
		customer: dbtest.MustCreateCustomer(t, conn, "Kwame Mensah", "0241234567"),
	}
}

func staff() auth.Actor {
	id := uuid.New()
	return auth.Actor{UserID: &id, Role: enums.RoleStaff}
}

func admin() auth.Actor {
	id := uuid.New()
	return auth.Actor{UserID: &id, Role: enums.RoleAdmin}
}

func manager() auth.Actor {
	id := uuid.New()
	return auth.Actor{UserID: &id, Role: enums.RoleManager}
}

func money(t *testing.T, v string) decimal.Decimal {
	return dbtest.Money(t, v)
}

func (f fixture) create(t *testing.T, input CreateInput) *InvoiceDTO {
	t.Helper()
	if input.CustomerID == uuid.Nil {
		input.CustomerID = f.customer.ID
	}
	if input.Actor.Role == "" {
		input.Actor = staff()
	}
	dto, err := f.svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return dto
}

func TestCreateComputesTotalsAndReservesStock(t *testing.T) {
	f := newFixture(t)
	part := dbtest.MustCreatePart(t, f.conn, "Brake pad", 6, "100.00")

	dto := f.create(t, CreateInput{
		Items: []ItemInput{
			{Description: "Brake pad", Quantity: 4, UnitPrice: money(t, "100.00"), PartID: &part.ID},
			{Description: "Labour", Quantity: 1, UnitPrice: money(t, "70.00")},
		},
		Tax:      money(t, "30.00"),
		Discount: money(t, "50.00"),
	})

	if dto.InvoiceNumber != "INV-0001" {
		t.Fatalf("expected INV-0001, got %s", dto.InvoiceNumber)
	}
	if dto.Subtotal != "470.00" || dto.Total != "450.00" {
		t.Fatalf("unexpected totals subtotal=%s total=%s", dto.Subtotal, dto.Total)
	}
	if dto.Status != enums.InvoiceStatusDraft {
		t.Fatalf("expected DRAFT, got %s", dto.Status)
	}
	if dto.Outstanding != "450.00" || dto.TotalPaid != "0.00" {
		t.Fatalf("unexpected balance paid=%s outstanding=%s", dto.TotalPaid, dto.Outstanding)
	}
	if len(dto.Items) != 2 || dto.Items[0].LineTotal != "400.00" {
		t.Fatalf("unexpected items %+v", dto.Items)
	}
	if got := dbtest.StockOf(t, f.conn, part.ID); got != 2 {
		t.Fatalf("expected stock 2 after reservation, got %d", got)
	}
	if n := dbtest.Count(t, f.conn.Where("invoice_id = ? AND type = ?", dto.ID, enums.InvoiceEventCreated), &models.InvoiceEvent{}); n != 1 {
		t.Fatalf("expected one created event, got %d", n)
	}
}

func TestCreateAllocatesSequentialNumbers(t *testing.T) {
	f := newFixture(t)
	items := []ItemInput{{Description: "Oil change", Quantity: 1, UnitPrice: money(t, "80.00")}}

	first := f.create(t, CreateInput{Items: items})
	second := f.create(t, CreateInput{Items: items, Send: true})

	if first.InvoiceNumber != "INV-0001" || second.InvoiceNumber != "INV-0002" {
		t.Fatalf("unexpected numbers %s %s", first.InvoiceNumber, second.InvoiceNumber)
	}
	if second.Status != enums.InvoiceStatusSent {
		t.Fatalf("expected SENT when send requested, got %s", second.Status)
	}
}

func TestCreateInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	plenty := dbtest.MustCreatePart(t, f.conn, "Oil filter", 10, "40.00")
	scarce := dbtest.MustCreatePart(t, f.conn, "Brake disc", 2, "300.00")

	_, err := f.svc.Create(context.Background(), CreateInput{
		CustomerID: f.customer.ID,
		Items: []ItemInput{
			{Description: "Oil filter", Quantity: 3, UnitPrice: money(t, "40.00"), PartID: &plenty.ID},
			{Description: "Brake disc", Quantity: 5, UnitPrice: money(t, "300.00"), PartID: &scarce.ID},
		},
		Actor: staff(),
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) || !pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock) {
		t.Fatalf("unexpected error %v", err)
	}
	if got := dbtest.StockOf(t, f.conn, scarce.ID); got != 2 {
		t.Fatalf("expected scarce stock to stay 2, got %d", got)
	}
	if got := dbtest.StockOf(t, f.conn, plenty.ID); got != 10 {
		t.Fatalf("expected earlier reservation rolled back, got %d", got)
	}
	if n := dbtest.Count(t, f.conn, &models.Invoice{}); n != 0 {
		t.Fatalf("expected no invoice, got %d", n)
	}
	if n := dbtest.Count(t, f.conn, &models.InvoiceItem{}); n != 0 {
		t.Fatalf("expected no items, got %d", n)
	}

	next := f.create(t, CreateInput{Items: []ItemInput{{Description: "Labour", Quantity: 1, UnitPrice: money(t, "50.00")}}})
	if next.InvoiceNumber != "INV-0001" {
		t.Fatalf("expected the failed create to release its number, got %s", next.InvoiceNumber)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	otherCustomer := dbtest.MustCreateCustomer(t, f.conn, "Ama Owusu", "0201112223")
	job := dbtest.MustCreateJob(t, f.conn, otherCustomer.ID)
	missing := uuid.New()

	cases := []struct {
		name   string
		input  CreateInput
		code   pkgerrors.Code
		reason pkgerrors.Reason
	}{
		{name: "no items", input: CreateInput{CustomerID: f.customer.ID}, code: pkgerrors.CodeValidation},
		{
			name:  "zero quantity",
			input: CreateInput{CustomerID: f.customer.ID, Items: []ItemInput{{Description: "x", Quantity: 0, UnitPrice: money(t, "1")}}},
			code:  pkgerrors.CodeValidation,
		},
		{
			name:   "unknown customer",
			input:  CreateInput{CustomerID: missing, Items: []ItemInput{{Description: "x", Quantity: 1, UnitPrice: money(t, "1")}}},
			code:   pkgerrors.CodeNotFound,
			reason: pkgerrors.ReasonCustomerNotFound,
		},
		{
			name:   "job of another customer",
			input:  CreateInput{CustomerID: f.customer.ID, JobID: &job.ID, Items: []ItemInput{{Description: "x", Quantity: 1, UnitPrice: money(t, "1")}}},
			code:   pkgerrors.CodeConflict,
			reason: pkgerrors.ReasonJobMismatch,
		},
		{
			name:   "unknown part",
			input:  CreateInput{CustomerID: f.customer.ID, Items: []ItemInput{{Description: "x", Quantity: 1, UnitPrice: money(t, "1"), PartID: &missing}}},
			code:   pkgerrors.CodeNotFound,
			reason: pkgerrors.ReasonPartNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.input)
			if !pkgerrors.IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if tc.reason != "" && !pkgerrors.HasReason(err, tc.reason) {
				t.Fatalf("expected reason %s, got %v", tc.reason, err)
			}
		})
	}
	if n := dbtest.Count(t, f.conn, &models.Invoice{}); n != 0 {
		t.Fatalf("expected no invoices, got %d", n)
	}
}

// itemCountingStock records how many invoice items exist in the
// transaction when each reservation runs.
type itemCountingStock struct {
	inventory.Service
	itemsSeen []int64
}

func (s *itemCountingStock) Reserve(ctx context.Context, tx *gorm.DB, req inventory.ReservationRequest) error {
	var n int64
	if err := tx.Model(&models.InvoiceItem{}).Where("invoice_id = ?", *req.InvoiceID).Count(&n).Error; err != nil {
		return err
	}
	s.itemsSeen = append(s.itemsSeen, n)
	return s.Service.Reserve(ctx, tx, req)
}

func TestCreateReservesBeforeInsertingItems(t *testing.T) {
	client, conn := dbtest.NewClient(t)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	inner, err := inventory.NewService(inventory.NewRepository(conn), client, emitter)
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	events, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	stock := &itemCountingStock{Service: inner}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		TxRunner:   client,
		Inventory:  stock,
		Customers:  customers.NewRepository(conn),
		Ledger:     events,
		Outbox:     emitter,
		Clock:      func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatalf("invoice service: %v", err)
	}
	customer := dbtest.MustCreateCustomer(t, conn, "Ama Owusu", "0201112233")
	part := dbtest.MustCreatePart(t, conn, "Oil filter", 5, "40.00")
	missing := uuid.New()

	_, err = svc.Create(context.Background(), CreateInput{
		CustomerID: customer.ID,
		Actor:      staff(),
		Items: []ItemInput{
			{Description: "Oil filter", Quantity: 1, UnitPrice: money(t, "40.00"), PartID: &part.ID},
			{Description: "Ghost part", Quantity: 1, UnitPrice: money(t, "10.00"), PartID: &missing},
		},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) || !pkgerrors.HasReason(err, pkgerrors.ReasonPartNotFound) {
		t.Fatalf("expected PART_NOT_FOUND, got %v", err)
	}
	if len(stock.itemsSeen) != 2 || stock.itemsSeen[0] != 0 || stock.itemsSeen[1] != 0 {
		t.Fatalf("expected reservations to run before item insert, saw %v", stock.itemsSeen)
	}
	if got := dbtest.StockOf(t, conn, part.ID); got != 5 {
		t.Fatalf("expected rollback to restore stock, got %d", got)
	}
	if n := dbtest.Count(t, conn, &models.InvoiceItem{}); n != 0 {
		t.Fatalf("expected no items, got %d", n)
	}
}

func markPaid(t *testing.T, conn *gorm.DB, inv *InvoiceDTO, amount string) {
	t.Helper()
	payment := &models.Payment{InvoiceID: inv.ID, Amount: money(t, amount), Method: enums.PaymentMethodCash}
	if err := conn.Create(payment).Error; err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	if err := conn.Model(&models.Invoice{}).Where("id = ?", inv.ID).
		Updates(map[string]any{"status": enums.InvoiceStatusPaid, "paid_at": fixedNow}).Error; err != nil {
		t.Fatalf("mark paid: %v", err)
	}
}

func TestUpdatePaidInvoiceIsImmutableForNonAdmins(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, CreateInput{Items: []ItemInput{{Description: "Service", Quantity: 1, UnitPrice: money(t, "300.00")}}, Send: true})
	markPaid(t, f.conn, inv, "300.00")

	notes := "changed"
	_, err := f.svc.Update(context.Background(), inv.ID, UpdateInput{Notes: &notes, Actor: staff()})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) || !pkgerrors.HasReason(err, pkgerrors.ReasonImmutable) {
		t.Fatalf("expected immutable validation error, got %v", err)
	}

	updated, err := f.svc.Update(context.Background(), inv.ID, UpdateInput{Notes: &notes, Actor: admin()})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Status != enums.InvoiceStatusPaid || updated.Notes == nil || *updated.Notes != notes {
		t.Fatalf("unexpected admin update result %+v", updated)
	}
}

func TestUpdateRecomputesTotalAndGuardsPaidAmount(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, CreateInput{Items: []ItemInput{{Description: "Service", Quantity: 2, UnitPrice: money(t, "100.00")}}, Send: true})

	tax := money(t, "25.00")
	updated, err := f.svc.Update(context.Background(), inv.ID, UpdateInput{Tax: &tax, Actor: staff()})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Total != "225.00" || updated.Version != inv.Version+1 {
		t.Fatalf("unexpected update total=%s version=%d", updated.Total, updated.Version)
	}

	payment := &models.Payment{InvoiceID: inv.ID, Amount: money(t, "200.00"), Method: enums.PaymentMethodCash}
	if err := f.conn.Create(payment).Error; err != nil {
		t.Fatalf("insert payment: %v", err)
	}
	discount := money(t, "50.00")
	_, err = f.svc.Update(context.Background(), inv.ID, UpdateInput{Discount: &discount, Actor: staff()})
	if !pkgerrors.HasReason(err, pkgerrors.ReasonTotalBelowPaid) {
		t.Fatalf("expected total below paid, got %v", err)
	}

	discount = money(t, "25.00")
	paid, err := f.svc.Update(context.Background(), inv.ID, UpdateInput{Discount: &discount, Actor: staff()})
	if err != nil {
		t.Fatalf("update to paid: %v", err)
	}
	if paid.Status != enums.InvoiceStatusPaid || paid.PaidAt == nil || paid.Outstanding != "0.00" {
		t.Fatalf("expected invoice to become PAID, got %+v", paid)
	}
	if n := dbtest.Count(t, f.conn.Where("event_type = ?", enums.EventInvoicePaid), &models.OutboxEvent{}); n != 1 {
		t.Fatalf("expected one paid notification, got %d", n)
	}
}

func TestSendAndCancelTransitions(t *testing.T) {
	f := newFixture(t)
	part := dbtest.MustCreatePart(t, f.conn, "Spark plug", 8, "25.00")
	inv := f.create(t, CreateInput{Items: []ItemInput{{Description: "Spark plug", Quantity: 4, UnitPrice: money(t, "25.00"), PartID: &part.ID}}})

	sent, err := f.svc.Send(context.Background(), inv.ID, staff())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Status != enums.InvoiceStatusSent {
		t.Fatalf("expected SENT, got %s", sent.Status)
	}
	if _, err := f.svc.Send(context.Background(), inv.ID, staff()); !pkgerrors.HasReason(err, pkgerrors.ReasonInvalidTransition) {
		t.Fatalf("expected invalid transition on second send, got %v", err)
	}

	cancelled, err := f.svc.Cancel(context.Background(), inv.ID, staff())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.InvoiceStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancel result %+v", cancelled)
	}
	if got := dbtest.StockOf(t, f.conn, part.ID); got != 4 {
		t.Fatalf("cancel must not restock, got %d", got)
	}

	notes := "late edit"
	if _, err := f.svc.Update(context.Background(), inv.ID, UpdateInput{Notes: &notes, Actor: admin()}); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict updating cancelled invoice, got %v", err)
	}
}

func TestHistoryRecordsLifecycle(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, CreateInput{Items: []ItemInput{{Description: "Labour", Quantity: 1, UnitPrice: money(t, "80.00")}}})
	if _, err := f.svc.Send(context.Background(), inv.ID, staff()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), inv.ID, staff()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	events, err := f.svc.History(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	seen := map[enums.InvoiceEventType]int{}
	for _, e := range events {
		seen[e.Type]++
	}
	if len(events) != 3 || seen[enums.InvoiceEventCreated] != 1 || seen[enums.InvoiceEventSent] != 1 || seen[enums.InvoiceEventCancelled] != 1 {
		t.Fatalf("unexpected history %+v", events)
	}

	sent, err := f.svc.History(context.Background(), inv.ID, enums.InvoiceEventSent)
	if err != nil || len(sent) != 1 {
		t.Fatalf("expected one sent event, got %d %v", len(sent), err)
	}
	if _, err := f.svc.History(context.Background(), uuid.New()); !pkgerrors.HasReason(err, pkgerrors.ReasonInvoiceNotFound) {
		t.Fatalf("expected unknown invoice to be not found, got %v", err)
	}
}

func TestCancelRejectsInvoicesWithPayments(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, CreateInput{Items: []ItemInput{{Description: "Service", Quantity: 1, UnitPrice: money(t, "300.00")}}, Send: true})
	if err := f.conn.Create(&models.Payment{InvoiceID: inv.ID, Amount: money(t, "100.00"), Method: enums.PaymentMethodCash}).Error; err != nil {
		t.Fatalf("insert payment: %v", err)
	}

	_, err := f.svc.Cancel(context.Background(), inv.ID, staff())
	if !pkgerrors.HasReason(err, pkgerrors.ReasonHasPayments) {
		t.Fatalf("expected has payments, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), inv.ID, admin()); !pkgerrors.HasReason(err, pkgerrors.ReasonHasPayments) {
		t.Fatalf("expected delete to be blocked, got %v", err)
	}
}

func TestRestockReturnsStockOnce(t *testing.T) {
	f := newFixture(t)
	part := dbtest.MustCreatePart(t, f.conn, "Wiper blade", 5, "30.00")
	inv := f.create(t, CreateInput{Items: []ItemInput{{Description: "Wiper blade", Quantity: 2, UnitPrice: money(t, "30.00"), PartID: &part.ID}}})

	if _, err := f.svc.Restock(context.Background(), inv.ID, admin()); !pkgerrors.HasReason(err, pkgerrors.ReasonInvalidTransition) {
		t.Fatalf("expected restock of draft to fail, got %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), inv.ID, staff()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.Restock(context.Background(), inv.ID, staff()); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for staff, got %v", err)
	}

	restocked, err := f.svc.Restock(context.Background(), inv.ID, manager())
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if restocked.RestockedAt == nil {
		t.Fatal("expected restocked timestamp")
	}
	if got := dbtest.StockOf(t, f.conn, part.ID); got != 5 {
		t.Fatalf("expected stock back to 5, got %d", got)
	}
	if _, err := f.svc.Restock(context.Background(), inv.ID, admin()); !pkgerrors.HasReason(err, pkgerrors.ReasonAlreadyRestocked) {
		t.Fatalf("expected already restocked, got %v", err)
	}
	if got := dbtest.StockOf(t, f.conn, part.ID); got != 5 {
		t.Fatalf("second restock changed stock to %d", got)
	}
}

func TestDeleteRemovesDraft(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, CreateInput{Items: []ItemInput{{Description: "Diagnosis", Quantity: 1, UnitPrice: money(t, "60.00")}}})

	if err := f.svc.Delete(context.Background(), inv.ID, admin()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), inv.ID); !pkgerrors.HasReason(err, pkgerrors.ReasonInvoiceNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if n := dbtest.Count(t, f.conn, &models.InvoiceItem{}); n != 0 {
		t.Fatalf("expected items removed, got %d", n)
	}
}

func TestListPaginates(t *testing.T) {
	f := newFixture(t)
	items := []ItemInput{{Description: "Wash", Quantity: 1, UnitPrice: money(t, "20.00")}}
	for i := 0; i < 3; i++ {
		f.create(t, CreateInput{Items: items})
	}

	page, err := f.svc.List(context.Background(), ListFilter{Page: pagination.Params{Limit: 2}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Invoices) != 2 || page.NextCursor == "" {
		t.Fatalf("expected a full first page with cursor, got %d %q", len(page.Invoices), page.NextCursor)
	}
	all, err := f.svc.List(context.Background(), ListFilter{Page: pagination.Params{Limit: 10}})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all.Invoices) != 3 || all.NextCursor != "" {
		t.Fatalf("expected a single page of three, got %d %q", len(all.Invoices), all.NextCursor)
	}
	sent := enums.InvoiceStatusSent
	filtered, err := f.svc.List(context.Background(), ListFilter{Status: &sent})
	if err != nil {
		t.Fatalf("list sent: %v", err)
	}
	if len(filtered.Invoices) != 0 {
		t.Fatalf("expected no sent invoices, got %d", len(filtered.Invoices))
	}
	if _, err := f.svc.List(context.Background(), ListFilter{Page: pagination.Params{Cursor: "%%%"}}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected bad cursor to be a validation error, got %v", err)
	}
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture(t)
	items := []ItemInput{{Description: "Tyres", Quantity: 1, UnitPrice: money(t, "400.00")}}
	past := fixedNow.Add(-48 * time.Hour)
	future := fixedNow.Add(48 * time.Hour)

	late := f.create(t, CreateInput{Items: items, Send: true, DueDate: &past})
	onTime := f.create(t, CreateInput{Items: items, Send: true, DueDate: &future})
	draft := f.create(t, CreateInput{Items: items, DueDate: &past})

	marked, err := f.svc.MarkOverdue(context.Background(), fixedNow)
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if marked != 1 {
		t.Fatalf("expected one invoice marked, got %d", marked)
	}
	if got := dbtest.MustLoadInvoice(t, f.conn, late.ID).Status; got != enums.InvoiceStatusOverdue {
		t.Fatalf("expected late invoice OVERDUE, got %s", got)
	}
	if got := dbtest.MustLoadInvoice(t, f.conn, onTime.ID).Status; got != enums.InvoiceStatusSent {
		t.Fatalf("expected on-time invoice SENT, got %s", got)
	}
	if got := dbtest.MustLoadInvoice(t, f.conn, draft.ID).Status; got != enums.InvoiceStatusDraft {
		t.Fatalf("expected draft untouched, got %s", got)
	}
	if n := dbtest.Count(t, f.conn.Where("event_type = ?", enums.EventInvoiceOverdue), &models.OutboxEvent{}); n != 1 {
		t.Fatalf("expected one overdue notification, got %d", n)
	}

	again, err := f.svc.MarkOverdue(context.Background(), fixedNow)
	if err != nil || again != 0 {
		t.Fatalf("expected rerun to be a no-op, got %d %v", again, err)
	}

	overdue, err := f.svc.ListOverdue(context.Background(), fixedNow)
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != late.ID {
		t.Fatalf("unexpected overdue list %+v", overdue)
	}
}

func TestSendReminderQueuesNotification(t *testing.T) {
	f := newFixture(t)
	items := []ItemInput{{Description: "Battery", Quantity: 1, UnitPrice: money(t, "250.00")}}
	draft := f.create(t, CreateInput{Items: items})
	sent := f.create(t, CreateInput{Items: items, Send: true})

	if err := f.svc.SendReminder(context.Background(), draft.ID, staff()); !pkgerrors.HasReason(err, pkgerrors.ReasonInvalidTransition) {
		t.Fatalf("expected reminder on draft to fail, got %v", err)
	}
	if err := f.svc.SendReminder(context.Background(), sent.ID, staff()); err != nil {
		t.Fatalf("send reminder: %v", err)
	}
	if n := dbtest.Count(t, f.conn.Where("event_type = ?", enums.EventInvoicePaymentReminder), &models.OutboxEvent{}); n != 1 {
		t.Fatalf("expected one reminder, got %d", n)
	}
}

type stubRenderer struct {
	view DocumentView
}

func (s *stubRenderer) RenderInvoice(_ context.Context, view DocumentView) ([]byte, error) {
	s.view = view
	return []byte("%PDF-stub"), nil
}

func TestRenderPDF(t *testing.T) {
	f := newFixture(t)
	inv := f.create(t, CreateInput{Items: []ItemInput{{Description: "Alignment", Quantity: 1, UnitPrice: money(t, "90.00")}}})

	if _, _, err := f.svc.RenderPDF(context.Background(), inv.ID); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error without renderer, got %v", err)
	}

	renderer := &stubRenderer{}
	svc := f.svc.(*service)
	svc.renderer = renderer
	doc, name, err := f.svc.RenderPDF(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(doc) != "%PDF-stub" || name != "INV-0001.pdf" {
		t.Fatalf("unexpected document %q %q", doc, name)
	}
	if renderer.view.Customer.ID != f.customer.ID || renderer.view.Invoice.Total != "90.00" {
		t.Fatalf("unexpected render view %+v", renderer.view)
	}
}
