package cron

import (
	"context"
	"fmt"
	"time"
)

type overdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}

type InvoiceOverdueJobParams struct {
	Invoices overdueMarker
}

// NewInvoiceOverdueJob flips unpaid SENT invoices past their due date to
// OVERDUE. Each flip queues one overdue notice.
func NewInvoiceOverdueJob(params InvoiceOverdueJobParams) (Job, error) {
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice service required")
	}
	return &invoiceOverdueJob{
		invoices: params.Invoices,
		now:      time.Now,
	}, nil
}

type invoiceOverdueJob struct {
	invoices overdueMarker
	now      func() time.Time
}

func (j *invoiceOverdueJob) Name() string { return "invoice-overdue" }

func (j *invoiceOverdueJob) Run(ctx context.Context) (int64, error) {
	marked, err := j.invoices.MarkOverdue(ctx, j.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}
	return int64(marked), nil
}
