// Package documents renders printable invoices.
package documents

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/plunoo/biskakenauto-sub000/internal/invoices"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
)

const dateLayout = "02 Jan 2006"

var (
	colorBrand = &props.Color{Red: 176, Green: 30, Blue: 36}
	colorMuted = &props.Color{Red: 105, Green: 105, Blue: 105}
)

// ShopDetails is printed in the invoice header.
type ShopDetails struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// DefaultShop is the header used when none is configured.
var DefaultShop = ShopDetails{
	Name:    "Biskaken Auto Services",
	Address: "Accra, Ghana",
}

// PDFRenderer lays out an A4 invoice with maroto.
type PDFRenderer struct {
	shop     ShopDetails
	currency string
}

func NewPDFRenderer(shop ShopDetails, currency string) *PDFRenderer {
	if shop.Name == "" {
		shop = DefaultShop
	}
	if currency == "" {
		currency = "GHS"
	}
	return &PDFRenderer{shop: shop, currency: currency}
}

func (r *PDFRenderer) RenderInvoice(_ context.Context, view invoices.DocumentView) ([]byte, error) {
	inv := view.Invoice
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).WithRightMargin(12).
		WithTopMargin(12).WithBottomMargin(12).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Invoice "+inv.InvoiceNumber, true).
		WithAuthor(r.shop.Name, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(r.headerRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorBrand, Thickness: 0.5}))
	m.AddRows(billToRow(view.Customer, inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorMuted, Thickness: 0.2}))
	m.AddRows(itemHeaderRow())
	m.AddRows(r.itemRows(inv.Items)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorMuted, Thickness: 0.2}))
	m.AddRows(r.totalRows(inv)...)
	if len(inv.Payments) > 0 {
		m.AddRows(row.New(4))
		m.AddRows(r.paymentRows(inv.Payments)...)
	}
	if inv.Notes != nil && strings.TrimSpace(*inv.Notes) != "" {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("Notes: "+*inv.Notes, props.Text{Size: 8, Top: 3, Color: colorMuted}),
		)))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.InvoiceNumber, err)
	}
	return doc.GetBytes(), nil
}

func (r *PDFRenderer) headerRow(inv invoices.InvoiceDTO) core.Row {
	contact := joinNonEmpty("  |  ", r.shop.Address, r.shop.Phone, r.shop.Email)
	due := "on receipt"
	if inv.DueDate != nil {
		due = inv.DueDate.Format(dateLayout)
	}
	return row.New(22).Add(
		col.New(7).Add(
			text.New(r.shop.Name, props.Text{Style: fontstyle.Bold, Size: 14, Color: colorBrand, Top: 1}),
			text.New(contact, props.Text{Size: 8, Top: 10, Color: colorMuted}),
		),
		col.New(5).Add(
			text.New("INVOICE "+inv.InvoiceNumber, props.Text{Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1}),
			text.New("Issued: "+inv.IssueDate.Format(dateLayout), props.Text{Size: 8, Align: align.Right, Top: 8, Color: colorMuted}),
			text.New("Due: "+due, props.Text{Size: 8, Align: align.Right, Top: 12, Color: colorMuted}),
			text.New("Status: "+inv.Status.String(), props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 16}),
		),
	)
}

func billToRow(customer models.Customer, inv invoices.InvoiceDTO) core.Row {
	email := ""
	if customer.Email != nil {
		email = *customer.Email
	}
	return row.New(16).Add(
		col.New(12).Add(
			text.New("BILL TO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorBrand, Top: 1}),
			text.New(customer.Name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 5}),
			text.New(joinNonEmpty("  |  ", customer.Phone, email), props.Text{Size: 8, Top: 11, Color: colorMuted}),
		),
	)
}

func itemHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Align: a, Top: 2}))
	}
	return row.New(8).Add(
		h("#", 1, align.Left),
		h("Description", 6, align.Left),
		h("Qty", 1, align.Center),
		h("Unit price", 2, align.Right),
		h("Amount", 2, align.Right),
	)
}

func (r *PDFRenderer) itemRows(items []invoices.ItemDTO) []core.Row {
	rows := make([]core.Row, 0, len(items))
	for i, item := range items {
		rows = append(rows, row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprintf("%d", i+1), props.Text{Size: 8, Top: 1})),
			col.New(6).Add(text.New(item.Description, props.Text{Size: 8, Top: 1})),
			col.New(1).Add(text.New(fmt.Sprintf("%d", item.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(r.money(item.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1})),
			col.New(2).Add(text.New(r.money(item.LineTotal), props.Text{Size: 8, Align: align.Right, Top: 1})),
		))
	}
	return rows
}

func (r *PDFRenderer) totalRows(inv invoices.InvoiceDTO) []core.Row {
	total := func(label, value string, strong bool) core.Row {
		style := props.Text{Size: 9, Align: align.Right, Top: 1}
		if strong {
			style.Style = fontstyle.Bold
			style.Color = colorBrand
		}
		return row.New(6).Add(
			col.New(7),
			col.New(3).Add(text.New(label, style)),
			col.New(2).Add(text.New(value, style)),
		)
	}
	return []core.Row{
		total("Subtotal", r.money(inv.Subtotal), false),
		total("Tax", r.money(inv.Tax), false),
		total("Discount", "-"+r.money(inv.Discount), false),
		total("Total", r.money(inv.Total), true),
		total("Paid", r.money(inv.TotalPaid), false),
		total("Balance due", r.money(inv.Outstanding), true),
	}
}

func (r *PDFRenderer) paymentRows(payments []invoices.PaymentDTO) []core.Row {
	rows := []core.Row{row.New(6).Add(col.New(12).Add(
		text.New("PAYMENTS", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorBrand, Top: 1}),
	))}
	for _, p := range payments {
		ref := ""
		if p.Reference != nil {
			ref = *p.Reference
		}
		rows = append(rows, row.New(5).Add(
			col.New(3).Add(text.New(p.RecordedAt.Format(dateLayout), props.Text{Size: 8})),
			col.New(3).Add(text.New(strings.ReplaceAll(p.Method.String(), "_", " "), props.Text{Size: 8})),
			col.New(4).Add(text.New(ref, props.Text{Size: 8, Color: colorMuted})),
			col.New(2).Add(text.New(r.money(p.Amount), props.Text{Size: 8, Align: align.Right})),
		))
	}
	return rows
}

func (r *PDFRenderer) money(amount string) string {
	return r.currency + " " + amount
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
