package invoices

import (
	"time"

	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox/payloads"
)

func contactOf(c *models.Customer) payloads.CustomerContact {
	if c == nil {
		return payloads.CustomerContact{}
	}
	return payloads.CustomerContact{Name: c.Name, Phone: c.Phone, Email: c.Email}
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	if actor.UserID == nil && actor.Role == "" {
		return &outbox.ActorRef{Role: "system"}
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

// PaidEvent builds the one-shot invoice_paid notification. inv must carry
// its payments.
func PaidEvent(inv *models.Invoice, customer *models.Customer, paidAt time.Time, actor auth.Actor) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventInvoicePaid,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   inv.ID,
		Actor:         actorRef(actor),
		Version:       1,
		OccurredAt:    paidAt,
		Data: payloads.InvoicePaidEvent{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			Customer:      contactOf(customer),
			Total:         inv.Total.StringFixed(2),
			TotalPaid:     SumPayments(inv.Payments).StringFixed(2),
			PaidAt:        paidAt,
		},
	}
}

func reminderEvent(inv *models.Invoice, customer *models.Customer, actor auth.Actor) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventInvoicePaymentReminder,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   inv.ID,
		Actor:         actorRef(actor),
		Version:       1,
		Data: payloads.InvoicePaymentReminderEvent{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			Customer:      contactOf(customer),
			Total:         inv.Total.StringFixed(2),
			Outstanding:   Outstanding(inv.Total, SumPayments(inv.Payments)).StringFixed(2),
			DueDate:       inv.DueDate,
		},
	}
}

func overdueEvent(inv *models.Invoice, customer *models.Customer) outbox.DomainEvent {
	var due time.Time
	if inv.DueDate != nil {
		due = *inv.DueDate
	}
	return outbox.DomainEvent{
		EventType:     enums.EventInvoiceOverdue,
		AggregateType: enums.AggregateInvoice,
		AggregateID:   inv.ID,
		Actor:         actorRef(auth.SystemActor()),
		Version:       1,
		Data: payloads.InvoiceOverdueEvent{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			Customer:      contactOf(customer),
			Outstanding:   Outstanding(inv.Total, SumPayments(inv.Payments)).StringFixed(2),
			DueDate:       due,
		},
	}
}
