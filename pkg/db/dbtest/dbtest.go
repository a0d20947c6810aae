// Package dbtest opens isolated in-memory sqlite databases carrying the
// full gorm schema for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// New returns a fresh schema. The pool is pinned to one connection so a
// rolled back transaction is observed by the next query.
func New(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:bk_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.Customer{},
		&models.Job{},
		&models.Part{},
		&models.StockMovement{},
		&models.InvoiceSequence{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.InvoiceEvent{},
		&models.Payment{},
		&models.PaymentAttempt{},
		&models.AppliedReference{},
		&models.OutboxEvent{},
		&models.OutboxDeadLetter{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return conn
}

// NewClient wraps New in a db.Client for services that need WithTx.
func NewClient(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := New(t)
	return db.NewFromGorm(conn), conn
}

// Money parses a decimal literal and fails the test on bad input.
func Money(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse money %q: %v", value, err)
	}
	return d
}

func MustCreateCustomer(t *testing.T, conn *gorm.DB, name, phone string) *models.Customer {
	t.Helper()
	customer := &models.Customer{Name: name, Phone: phone}
	if err := conn.Create(customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return customer
}

func MustCreateJob(t *testing.T, conn *gorm.DB, customerID uuid.UUID) *models.Job {
	t.Helper()
	job := &models.Job{CustomerID: customerID, Title: "Brake service"}
	if err := conn.Create(job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func MustCreatePart(t *testing.T, conn *gorm.DB, name string, stock int, price string) *models.Part {
	t.Helper()
	selling := Money(t, price)
	part := &models.Part{
		Name:          name,
		Category:      "brakes",
		StockQuantity: stock,
		ReorderLevel:  1,
		UnitCost:      selling.Div(decimal.NewFromInt(2)).Round(2),
		SellingPrice:  selling,
	}
	if err := conn.Create(part).Error; err != nil {
		t.Fatalf("create part: %v", err)
	}
	return part
}

func StockOf(t *testing.T, conn *gorm.DB, partID uuid.UUID) int {
	t.Helper()
	var part models.Part
	if err := conn.First(&part, "id = ?", partID).Error; err != nil {
		t.Fatalf("load part: %v", err)
	}
	return part.StockQuantity
}

func Count(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// MustCreateInvoice inserts a single-line invoice with the given total and
// status, bypassing the aggregate. Used by payment and webhook tests.
func MustCreateInvoice(t *testing.T, conn *gorm.DB, customerID uuid.UUID, number, total string, status enums.InvoiceStatus) *models.Invoice {
	t.Helper()
	amount := Money(t, total)
	inv := &models.Invoice{
		InvoiceNumber: number,
		CustomerID:    customerID,
		IssueDate:     time.Now().UTC(),
		Subtotal:      amount,
		Tax:           decimal.Zero,
		Discount:      decimal.Zero,
		Total:         amount,
		Status:        status,
		Version:       1,
	}
	if err := conn.Omit(clause.Associations).Create(inv).Error; err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	item := &models.InvoiceItem{
		InvoiceID:   inv.ID,
		Position:    1,
		Description: "Labour",
		Quantity:    1,
		UnitPrice:   amount,
		LineTotal:   amount,
	}
	if err := conn.Create(item).Error; err != nil {
		t.Fatalf("create invoice item: %v", err)
	}
	return inv
}

// MustLoadInvoice reads the invoice row without associations.
func MustLoadInvoice(t *testing.T, conn *gorm.DB, id uuid.UUID) *models.Invoice {
	t.Helper()
	var inv models.Invoice
	if err := conn.First(&inv, "id = ?", id).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	return &inv
}
