package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plunoo/biskakenauto-sub000/pkg/db"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/dbtest"
	"github.com/plunoo/biskakenauto-sub000/pkg/db/models"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
	pkgerrors "github.com/plunoo/biskakenauto-sub000/pkg/errors"
	"github.com/plunoo/biskakenauto-sub000/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *db.Client, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.NewClient(t)
	svc, err := NewService(NewRepository(conn), client, outbox.NewService(outbox.NewRepository(conn), nil))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, client, conn
}

func TestReserveDecrementsAndAudits(t *testing.T) {
	svc, client, conn := newTestService(t)
	part := dbtest.MustCreatePart(t, conn, "Brake pad", 5, "120.00")
	invoiceID := uuid.New()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, ReservationRequest{PartID: part.ID, Quantity: 3, InvoiceID: &invoiceID})
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if got := dbtest.StockOf(t, conn, part.ID); got != 2 {
		t.Fatalf("expected stock 2, got %d", got)
	}

	var movements []models.StockMovement
	if err := conn.Where("part_id = ?", part.ID).Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected one movement, got %d", len(movements))
	}
	m := movements[0]
	if m.Kind != enums.StockMovementReserve || m.QuantityDelta != -3 || m.QuantityAfter != 2 {
		t.Fatalf("unexpected movement %+v", m)
	}
	if m.InvoiceID == nil || *m.InvoiceID != invoiceID {
		t.Fatalf("movement not linked to invoice")
	}
}

func TestReserveInsufficientStockLeavesStockUntouched(t *testing.T) {
	svc, client, conn := newTestService(t)
	part := dbtest.MustCreatePart(t, conn, "P1", 2, "80.00")

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, ReservationRequest{PartID: part.ID, Quantity: 5})
	})
	if !IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict code, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	if !ok || details["available"] != 2 || details["requested"] != 5 {
		t.Fatalf("unexpected details %#v", pkgerrors.As(err).Details())
	}
	if got := dbtest.StockOf(t, conn, part.ID); got != 2 {
		t.Fatalf("expected stock to remain 2, got %d", got)
	}
	if n := dbtest.Count(t, conn, &models.StockMovement{}); n != 0 {
		t.Fatalf("expected no movements, got %d", n)
	}
}

func TestReserveUnknownPart(t *testing.T) {
	svc, client, _ := newTestService(t)
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, ReservationRequest{PartID: uuid.New(), Quantity: 1})
	})
	if !pkgerrors.HasReason(err, pkgerrors.ReasonPartNotFound) {
		t.Fatalf("expected part not found, got %v", err)
	}
}

func TestReserveRequiresTransaction(t *testing.T) {
	svc, _, conn := newTestService(t)
	part := dbtest.MustCreatePart(t, conn, "Filter", 1, "20.00")
	if err := svc.Reserve(context.Background(), nil, ReservationRequest{PartID: part.ID, Quantity: 1}); err == nil {
		t.Fatalf("expected error without transaction")
	}
	if got := dbtest.StockOf(t, conn, part.ID); got != 1 {
		t.Fatalf("stock changed without transaction: %d", got)
	}
}

func TestAdjustModes(t *testing.T) {
	tests := []struct {
		name  string
		start int
		qty   int
		mode  enums.StockAdjustMode
		want  int
		kind  enums.StockMovementKind
	}{
		{name: "add", start: 4, qty: 3, mode: enums.StockAdjustAdd, want: 7, kind: enums.StockMovementAdjustAdd},
		{name: "remove", start: 4, qty: 3, mode: enums.StockAdjustRemove, want: 1, kind: enums.StockMovementAdjustRemove},
		{name: "remove floors at zero", start: 4, qty: 10, mode: enums.StockAdjustRemove, want: 0, kind: enums.StockMovementAdjustRemove},
		{name: "set", start: 4, qty: 12, mode: enums.StockAdjustSet, want: 12, kind: enums.StockMovementAdjustSet},
		{name: "set floors at zero", start: 4, qty: -2, mode: enums.StockAdjustSet, want: 0, kind: enums.StockMovementAdjustSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, conn := newTestService(t)
			part := dbtest.MustCreatePart(t, conn, "Oil", tt.start, "45.00")

			res, err := svc.Adjust(context.Background(), AdjustInput{PartID: part.ID, Quantity: tt.qty, Mode: tt.mode})
			if err != nil {
				t.Fatalf("adjust: %v", err)
			}
			if res.QuantityBefore != tt.start || res.QuantityAfter != tt.want {
				t.Fatalf("expected %d -> %d, got %d -> %d", tt.start, tt.want, res.QuantityBefore, res.QuantityAfter)
			}
			if got := dbtest.StockOf(t, conn, part.ID); got != tt.want {
				t.Fatalf("expected persisted stock %d, got %d", tt.want, got)
			}
			var movement models.StockMovement
			if err := conn.Where("part_id = ?", part.ID).First(&movement).Error; err != nil {
				t.Fatalf("load movement: %v", err)
			}
			if movement.Kind != tt.kind || movement.QuantityAfter != tt.want {
				t.Fatalf("unexpected movement %+v", movement)
			}
		})
	}
}

func TestAdjustRejectsBadInput(t *testing.T) {
	svc, _, conn := newTestService(t)
	part := dbtest.MustCreatePart(t, conn, "Oil", 4, "45.00")

	if _, err := svc.Adjust(context.Background(), AdjustInput{PartID: part.ID, Quantity: 0, Mode: enums.StockAdjustAdd}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero add, got %v", err)
	}
	if _, err := svc.Adjust(context.Background(), AdjustInput{PartID: part.ID, Quantity: 1, Mode: "DOUBLE"}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for unknown mode, got %v", err)
	}
	if _, err := svc.Adjust(context.Background(), AdjustInput{PartID: uuid.New(), Quantity: 1, Mode: enums.StockAdjustAdd}); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreatePartEnforcesPricing(t *testing.T) {
	svc, _, conn := newTestService(t)

	_, err := svc.CreatePart(context.Background(), CreatePartInput{
		Name:         "Spark plug",
		Category:     "ignition",
		UnitCost:     dbtest.Money(t, "30.00"),
		SellingPrice: dbtest.Money(t, "30.00"),
	})
	if !pkgerrors.HasReason(err, pkgerrors.ReasonPricing) {
		t.Fatalf("expected pricing rejection, got %v", err)
	}

	dto, err := svc.CreatePart(context.Background(), CreatePartInput{
		Name:          "Spark plug",
		Category:      "ignition",
		StockQuantity: 10,
		ReorderLevel:  2,
		UnitCost:      dbtest.Money(t, "30.00"),
		SellingPrice:  dbtest.Money(t, "42.50"),
	})
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if dto.SellingPrice != "42.50" || dto.StockQuantity != 10 || dto.LowStock {
		t.Fatalf("unexpected dto %+v", dto)
	}

	var initial models.StockMovement
	if err := conn.Where("part_id = ?", dto.ID).First(&initial).Error; err != nil {
		t.Fatalf("load initial movement: %v", err)
	}
	if initial.Kind != enums.StockMovementInitial || initial.QuantityAfter != 10 {
		t.Fatalf("unexpected initial movement %+v", initial)
	}

	lowered := dbtest.Money(t, "25.00")
	if _, err := svc.UpdatePart(context.Background(), dto.ID, UpdatePartInput{SellingPrice: &lowered}); !pkgerrors.HasReason(err, pkgerrors.ReasonPricing) {
		t.Fatalf("expected update to enforce pricing, got %v", err)
	}
}

func TestDeletePartBlockedByUsage(t *testing.T) {
	svc, client, conn := newTestService(t)
	used := dbtest.MustCreatePart(t, conn, "Used", 5, "10.00")
	unused := dbtest.MustCreatePart(t, conn, "Unused", 5, "10.00")

	if err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Reserve(context.Background(), tx, ReservationRequest{PartID: used.ID, Quantity: 1})
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := svc.DeletePart(context.Background(), used.ID); !pkgerrors.HasReason(err, pkgerrors.ReasonPartInUse) {
		t.Fatalf("expected part in use, got %v", err)
	}
	if err := svc.DeletePart(context.Background(), unused.ID); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
	if _, err := svc.GetPart(context.Background(), unused.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected deleted part to be gone, got %v", err)
	}
}

func TestLowStock(t *testing.T) {
	svc, _, conn := newTestService(t)
	dbtest.MustCreatePart(t, conn, "Low", 1, "10.00")
	dbtest.MustCreatePart(t, conn, "Plenty", 9, "10.00")

	parts, err := svc.LowStock(context.Background())
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(parts) != 1 || parts[0].Name != "Low" {
		t.Fatalf("unexpected low stock parts %+v", parts)
	}
}

func TestReserveQueuesLowStockOnceWhenCrossingReorderLevel(t *testing.T) {
	svc, client, conn := newTestService(t)
	part := dbtest.MustCreatePart(t, conn, "Fan belt", 4, "60.00")
	reserve := func(qty int) {
		t.Helper()
		err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
			return svc.Reserve(context.Background(), tx, ReservationRequest{PartID: part.ID, Quantity: qty})
		})
		if err != nil {
			t.Fatalf("reserve %d: %v", qty, err)
		}
	}

	reserve(2)
	if n := dbtest.Count(t, conn, &models.OutboxEvent{}); n != 0 {
		t.Fatalf("expected no notification above reorder level, got %d", n)
	}
	reserve(1)
	reserve(1)
	var events []models.OutboxEvent
	if err := conn.Find(&events).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(events) != 1 || events[0].EventType != enums.EventPartLowStock || events[0].AggregateID != part.ID {
		t.Fatalf("expected a single low stock event, got %+v", events)
	}
}
