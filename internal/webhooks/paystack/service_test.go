package paystackwebhook

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/internal/customers"
	"github.com/plunoo/biskakenauto-sub000/internal/gateway"
	"github.com/plunoo/biskakenauto-sub000/internal/invoices"
	"github.com/plunoo/biskakenauto-sub000/internal/ledger"
	"github.com/plunoo/biskakenauto-sub000/internal/payments"
	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/dbtest"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/metrics"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
)

type memoryGuard struct {
	keys       map[string]bool
	deleted    []string
	releaseErr error
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{keys: map[string]bool{}}
}

func (g *memoryGuard) Claim(_ context.Context, consumer, key string) (bool, error) {
	full := consumer + ":" + key
	if g.keys[full] {
		return false, nil
	}
	g.keys[full] = true
	return true, nil
}

func (g *memoryGuard) Release(ctx context.Context, consumer, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.releaseErr != nil {
		return g.releaseErr
	}
	full := consumer + ":" + key
	delete(g.keys, full)
	g.deleted = append(g.deleted, full)
	return nil
}

type failingRecorder struct {
	err error
}

func (f failingRecorder) RecordPaymentTx(context.Context, *gorm.DB, payments.RecordInput) (*payments.RecordResult, error) {
	return nil, f.err
}

type fixture struct {
	svc      *Service
	conn     *gorm.DB
	client   *db.Client
	guard    *memoryGuard
	registry *prometheus.Registry
	customer *models.Customer
}

var paidAt = time.Date(2026, 6, 1, 14, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) fixture {
	t.Helper()
	client, conn := dbtest.NewClient(t)
	events, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	recorder, err := payments.NewService(payments.ServiceParams{
		Repository: payments.NewRepository(conn),
		Invoices:   invoices.NewRepository(conn),
		Customers:  customers.NewRepository(conn),
		Ledger:     events,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), nil),
		TxRunner:   client,
	})
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
	reg := prometheus.NewRegistry()
	guard := newMemoryGuard()
	svc, err := NewService(ServiceParams{
		Applied:  NewAppliedRepository(conn),
		Attempts: gateway.NewAttemptRepository(conn),
		Payments: recorder,
		TxRunner: client,
		Guard:    guard,
		Metrics:  metrics.NewWebhookMetrics(reg),
		Clock:    func() time.Time { return paidAt },
	})
	if err != nil {
		t.Fatalf("reconciler: %v", err)
	}
	return fixture{
		svc:      svc,
		conn:     conn,
		client:   client,
		guard:    guard,
		registry: reg,
		customer: dbtest.MustCreateCustomer(t, conn, "Yaw Mensah", "0271234567"),
	}
}

func chargeBody(reference string, invoiceID uuid.UUID, pesewas int64) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"status":"success","amount":%d,"currency":"GHS","channel":"mobile_money","paid_at":"2026-06-01T14:30:00Z","metadata":{"invoice_id":%q,"invoice_number":"INV-0007"}}}`,
		reference, pesewas, invoiceID.String()))
}

func (f fixture) deliver(t *testing.T, body []byte) (*gateway.ApplyResult, error) {
	t.Helper()
	event, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return f.svc.HandleEvent(context.Background(), event)
}

func (f fixture) appliedRow(t *testing.T, reference string) models.AppliedReference {
	t.Helper()
	var row models.AppliedReference
	if err := f.conn.First(&row, "reference = ?", reference).Error; err != nil {
		t.Fatalf("load applied reference: %v", err)
	}
	return row
}

func (f fixture) counter(t *testing.T, event, outcome string) float64 {
	t.Helper()
	mfs, err := f.registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "webhook_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelValue(m, "event") == event && labelValue(m, "outcome") == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestWebhookPaysInvoiceOnceAcrossDuplicateDeliveries(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	body := chargeBody("MM_INV-0007", inv.ID, 30000)

	first, err := f.deliver(t, body)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if first.Outcome != enums.ReferenceApplied || first.Duplicate || first.InvoiceStatus != enums.InvoiceStatusPaid {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := f.deliver(t, body)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !second.Duplicate || second.Outcome != enums.ReferenceApplied {
		t.Fatalf("expected duplicate ack, got %+v", second)
	}

	if n := dbtest.Count(t, f.conn, &models.Payment{}); n != 1 {
		t.Fatalf("expected exactly one payment, got %d", n)
	}
	got := dbtest.MustLoadInvoice(t, f.conn, inv.ID)
	if got.Status != enums.InvoiceStatusPaid {
		t.Fatalf("expected PAID, got %s", got.Status)
	}
	var payment models.Payment
	if err := f.conn.First(&payment).Error; err != nil {
		t.Fatalf("load payment: %v", err)
	}
	if payment.Method != enums.PaymentMethodMobileMoney || payment.Reference == nil || *payment.Reference != "MM_INV-0007" {
		t.Fatalf("unexpected payment %+v", payment)
	}
	if !payment.Amount.Equal(dbtest.Money(t, "300")) {
		t.Fatalf("unexpected amount %s", payment.Amount)
	}
	if f.counter(t, EventChargeSuccess, outcomeApplied) != 1 || f.counter(t, EventChargeSuccess, outcomeDuplicate) != 1 {
		t.Fatalf("unexpected webhook metrics")
	}
}

func TestDurableRecordCatchesDuplicateWithoutGuard(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	body := chargeBody("MM_INV-0007", inv.ID, 10000)

	if _, err := f.deliver(t, body); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	f.guard.keys = map[string]bool{}

	res, err := f.deliver(t, body)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !res.Duplicate {
		t.Fatalf("expected duplicate, got %+v", res)
	}
	if n := dbtest.Count(t, f.conn, &models.Payment{}); n != 1 {
		t.Fatalf("expected one payment, got %d", n)
	}
	got := dbtest.MustLoadInvoice(t, f.conn, inv.ID)
	if got.Status != enums.InvoiceStatusSent {
		t.Fatalf("partial payment must not change status, got %s", got.Status)
	}
}

func TestOverpaymentIsRejectedPermanently(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	attempt := &models.PaymentAttempt{
		InvoiceID: inv.ID, Reference: "MM_INV-0007", Provider: enums.ProviderMTN,
		Amount: dbtest.Money(t, "300"), Currency: "GHS", PayerContact: "+233271234567",
		Status: enums.AttemptPending,
	}
	if err := f.conn.Create(attempt).Error; err != nil {
		t.Fatalf("seed attempt: %v", err)
	}

	res, err := f.deliver(t, chargeBody("MM_INV-0007", inv.ID, 50000))
	if err != nil {
		t.Fatalf("rejection must be acknowledged, got %v", err)
	}
	if res.Outcome != enums.ReferenceRejected || res.Duplicate {
		t.Fatalf("expected rejected, got %+v", res)
	}
	row := f.appliedRow(t, "MM_INV-0007")
	if row.Outcome != enums.ReferenceRejected || row.Detail == nil || row.PaymentID != nil {
		t.Fatalf("unexpected applied row %+v", row)
	}
	if n := dbtest.Count(t, f.conn, &models.Payment{}); n != 0 {
		t.Fatalf("expected no payment, got %d", n)
	}
	var got models.PaymentAttempt
	if err := f.conn.First(&got, "reference = ?", "MM_INV-0007").Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if got.Status != enums.AttemptRejected {
		t.Fatalf("expected rejected attempt, got %s", got.Status)
	}

	again, err := f.deliver(t, chargeBody("MM_INV-0007", inv.ID, 50000))
	if err != nil || !again.Duplicate || again.Outcome != enums.ReferenceRejected {
		t.Fatalf("expected duplicate rejection, got %+v %v", again, err)
	}
	if f.counter(t, EventChargeSuccess, outcomeRejected) != 1 {
		t.Fatalf("expected one rejected metric")
	}
}

func TestSuccessResolvesAttempt(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	attempt := &models.PaymentAttempt{
		InvoiceID: inv.ID, Reference: "MM_INV-0007", Provider: enums.ProviderMTN,
		Amount: dbtest.Money(t, "300"), Currency: "GHS", PayerContact: "+233271234567",
		Status: enums.AttemptPending,
	}
	if err := f.conn.Create(attempt).Error; err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	if _, err := f.deliver(t, chargeBody("MM_INV-0007", inv.ID, 30000)); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	var got models.PaymentAttempt
	if err := f.conn.First(&got, "reference = ?", "MM_INV-0007").Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if got.Status != enums.AttemptSucceeded || got.ResolvedAt == nil {
		t.Fatalf("expected succeeded attempt, got %+v", got)
	}
}

func TestMetadataMismatchingAttemptIsRejected(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	other := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0008", "300.00", enums.InvoiceStatusSent)
	attempt := &models.PaymentAttempt{
		InvoiceID: inv.ID, Reference: "MM_INV-0007", Provider: enums.ProviderMTN,
		Amount: dbtest.Money(t, "300"), Currency: "GHS", PayerContact: "+233271234567",
		Status: enums.AttemptPending,
	}
	if err := f.conn.Create(attempt).Error; err != nil {
		t.Fatalf("seed attempt: %v", err)
	}

	res, err := f.deliver(t, chargeBody("MM_INV-0007", other.ID, 30000))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if res.Outcome != enums.ReferenceRejected {
		t.Fatalf("expected rejection, got %+v", res)
	}
	if dbtest.MustLoadInvoice(t, f.conn, other.ID).Status != enums.InvoiceStatusSent {
		t.Fatalf("other invoice must be untouched")
	}
}

func TestUnresolvableReferenceIsRejected(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"charge.success","data":{"reference":"PAY_UNKNOWN","status":"success","amount":1000,"currency":"GHS","channel":"card"}}`)

	res, err := f.deliver(t, body)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if res.Outcome != enums.ReferenceRejected || res.InvoiceID != nil {
		t.Fatalf("expected rejection without invoice, got %+v", res)
	}
}

func TestCancelledAndMissingInvoicesAreRejected(t *testing.T) {
	f := newFixture(t)
	cancelled := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0009", "300.00", enums.InvoiceStatusCancelled)

	res, err := f.deliver(t, chargeBody("MM_INV-0009", cancelled.ID, 30000))
	if err != nil || res.Outcome != enums.ReferenceRejected {
		t.Fatalf("cancelled: expected rejection, got %+v %v", res, err)
	}
	res, err = f.deliver(t, chargeBody("MM_INV-0404", uuid.New(), 30000))
	if err != nil || res.Outcome != enums.ReferenceRejected {
		t.Fatalf("missing: expected rejection, got %+v %v", res, err)
	}
}

func TestDraftInvoiceIsRejectedPermanently(t *testing.T) {
	f := newFixture(t)
	draft := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0010", "300.00", enums.InvoiceStatusDraft)

	res, err := f.deliver(t, chargeBody("MM_INV-0010", draft.ID, 30000))
	if err != nil || res.Outcome != enums.ReferenceRejected {
		t.Fatalf("expected rejection, got %+v %v", res, err)
	}
	if n := dbtest.Count(t, f.conn, &models.Payment{}); n != 0 {
		t.Fatalf("expected no payment rows, got %d", n)
	}
	if row := f.appliedRow(t, "MM_INV-0010"); row.Outcome != enums.ReferenceRejected {
		t.Fatalf("expected REJECTED row, got %s", row.Outcome)
	}
}

func TestTransientFailureReleasesGuard(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	f.svc.payments = failingRecorder{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}

	_, err := f.deliver(t, chargeBody("MM_INV-0007", inv.ID, 30000))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) || !pkgerrors.IsRetryable(err) {
		t.Fatalf("expected retryable dependency error, got %v", err)
	}
	if len(f.guard.deleted) != 1 {
		t.Fatalf("expected guard release, got %v", f.guard.deleted)
	}
	if n := dbtest.Count(t, f.conn, &models.AppliedReference{}); n != 0 {
		t.Fatalf("transient failure must not record an outcome, got %d", n)
	}
}

func TestConcurrentUpdateIsTransient(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	f.svc.payments = failingRecorder{err: pkgerrors.New(pkgerrors.CodeConflict, "modified").WithReason(pkgerrors.ReasonConcurrentUpdate)}

	_, err := f.deliver(t, chargeBody("MM_INV-0007", inv.ID, 30000))
	if !pkgerrors.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestNonSuccessEventsAreNoOps(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)

	for _, body := range []string{
		`{"event":"charge.failed","data":{"reference":"MM_INV-0007","status":"failed"}}`,
		`{"event":"transfer.success","data":{"reference":"TRF_1"}}`,
		`{"event":"something.new","data":{}}`,
		fmt.Sprintf(`{"event":"charge.success","data":{"reference":"MM_INV-0007","status":"abandoned","metadata":{"invoice_id":%q}}}`, inv.ID),
		fmt.Sprintf(`{"event":"charge.success","data":{"reference":"MM_INV-0007","amount":30000,"currency":"GHS","metadata":{"invoice_id":%q}}}`, inv.ID),
	} {
		res, err := f.deliver(t, []byte(body))
		if err != nil || res != nil {
			t.Fatalf("%s: expected no-op, got %+v %v", body, res, err)
		}
	}
	if n := dbtest.Count(t, f.conn, &models.Payment{}); n != 0 {
		t.Fatalf("expected no payments, got %d", n)
	}
	if n := dbtest.Count(t, f.conn, &models.AppliedReference{}); n != 0 {
		t.Fatalf("expected no applied references, got %d", n)
	}
}

func TestVerifyPathSharesIdempotency(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	id := inv.ID

	res, err := f.svc.Apply(context.Background(), gateway.Confirmation{
		Reference: "MM_INV-0007",
		Amount:    dbtest.Money(t, "300"),
		Currency:  "GHS",
		Channel:   "mobile_money",
		InvoiceID: &id,
		Source:    gateway.SourceVerify,
	})
	if err != nil || res.Outcome != enums.ReferenceApplied {
		t.Fatalf("verify apply: %+v %v", res, err)
	}
	if f.appliedRow(t, "MM_INV-0007").Source != gateway.SourceVerify {
		t.Fatalf("expected verify source")
	}

	dup, err := f.deliver(t, chargeBody("MM_INV-0007", inv.ID, 30000))
	if err != nil || !dup.Duplicate {
		t.Fatalf("webhook after verify must be a duplicate, got %+v %v", dup, err)
	}
	if n := dbtest.Count(t, f.conn, &models.Payment{}); n != 1 {
		t.Fatalf("expected one payment, got %d", n)
	}
}

func TestStuckClaimDoesNotSwallowRetry(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	body := chargeBody("MM_INV-0007", inv.ID, 30000)
	recorder := f.svc.payments
	f.svc.payments = failingRecorder{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	f.guard.releaseErr = errors.New("redis unavailable")

	if _, err := f.deliver(t, body); !pkgerrors.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if !f.guard.keys[ConsumerName+":MM_INV-0007"] {
		t.Fatal("expected claim to be left behind")
	}

	f.svc.payments = recorder
	f.guard.releaseErr = nil
	res, err := f.deliver(t, body)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Duplicate || res.Outcome != enums.ReferenceApplied || res.InvoiceStatus != enums.InvoiceStatusPaid {
		t.Fatalf("expected retry to apply, got %+v", res)
	}
	if n := dbtest.Count(t, f.conn, &models.Payment{}); n != 1 {
		t.Fatalf("expected one payment, got %d", n)
	}
	if got := dbtest.MustLoadInvoice(t, f.conn, inv.ID).Status; got != enums.InvoiceStatusPaid {
		t.Fatalf("expected PAID, got %s", got)
	}

	again, err := f.deliver(t, body)
	if err != nil || !again.Duplicate || again.Outcome != enums.ReferenceApplied {
		t.Fatalf("expected duplicate ack after apply, got %+v %v", again, err)
	}
	if n := dbtest.Count(t, f.conn, &models.Payment{}); n != 1 {
		t.Fatalf("expected one payment after redelivery, got %d", n)
	}
}

func TestCancelledDeliveryStillReleasesClaim(t *testing.T) {
	f := newFixture(t)
	inv := dbtest.MustCreateInvoice(t, f.conn, f.customer.ID, "INV-0007", "300.00", enums.InvoiceStatusSent)
	event, err := Decode(chargeBody("MM_INV-0007", inv.ID, 30000))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.HandleEvent(ctx, event); !pkgerrors.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if len(f.guard.deleted) != 1 || f.guard.keys[ConsumerName+":MM_INV-0007"] {
		t.Fatalf("expected claim released despite cancelled context, got %v", f.guard.deleted)
	}

	res, err := f.svc.HandleEvent(context.Background(), event)
	if err != nil || res.Outcome != enums.ReferenceApplied || res.Duplicate {
		t.Fatalf("expected retry to apply, got %+v %v", res, err)
	}
}
