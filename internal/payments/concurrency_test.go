package payments

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/plunoo/biskakenauto-sub000/pkg/db/dbtest"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
)

func TestConcurrentPaymentsNeverExceedTotal(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice(t, "450.00", enums.InvoiceStatusSent)
	amount := dbtest.Money(t, "200.00")

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RecordPayment(context.Background(), RecordInput{
				InvoiceID: inv.ID,
				Amount:    amount,
				Method:    enums.PaymentMethodCash,
			})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case pkgerrors.HasReason(err, pkgerrors.ReasonAmountExceedsOutstanding),
			pkgerrors.HasReason(err, pkgerrors.ReasonConcurrentUpdate):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 2 {
		t.Fatalf("expected two payments to fit, got %d", succeeded)
	}

	var rows []models.Payment
	if err := f.conn.Where("invoice_id = ?", inv.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	sum := decimal.Zero
	for _, p := range rows {
		sum = sum.Add(p.Amount)
	}
	if !sum.Equal(dbtest.Money(t, "400.00")) {
		t.Fatalf("expected 400.00 paid, got %s", sum)
	}
	if got := dbtest.MustLoadInvoice(t, f.conn, inv.ID).Status; got != enums.InvoiceStatusSent {
		t.Fatalf("expected SENT with 50.00 outstanding, got %s", got)
	}
}
