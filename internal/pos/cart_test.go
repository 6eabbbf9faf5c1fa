package pos

import (
	"errors"
	"testing"

	"warungpos/backend/internal/domain"
)

func testLedger() *inventoryLedger {
	return newInventoryLedger([]domain.Product{
		{ID: "PRD-A", Title: "Product A", PriceCents: 1500, Stock: 10, Categories: []string{"a"}},
		{ID: "PRD-B", Title: "Product B", PriceCents: 105, Stock: 3, Categories: []string{"b"}},
	})
}

func TestComputeTotals(t *testing.T) {
	lines := []domain.CartLine{
		{ProductID: "PRD-A", Qty: 2, UnitPriceCents: 1500},
		{ProductID: "PRD-B", Qty: 1, UnitPriceCents: 105},
	}

	subtotal, total := computeTotals(lines, domain.PaymentCash)
	if subtotal != 3105 || total != 3105 {
		t.Fatalf("cash: got subtotal %d total %d", subtotal, total)
	}

	subtotal, total = computeTotals(lines, domain.PaymentDebit)
	if total != subtotal {
		t.Fatalf("debit must carry no surcharge, got %d vs %d", total, subtotal)
	}

	// 10% of 3105 is 310.5, rounded half away from zero to 311.
	subtotal, total = computeTotals(lines, domain.PaymentCredit)
	if subtotal != 3105 || total != 3416 {
		t.Fatalf("credit: got subtotal %d total %d", subtotal, total)
	}

	subtotal, total = computeTotals(nil, domain.PaymentCredit)
	if subtotal != 0 || total != 0 {
		t.Fatalf("empty lines: got subtotal %d total %d", subtotal, total)
	}
}

func TestCartAddMergesAndSnapshotsPrice(t *testing.T) {
	ledger := testLedger()
	cart := newCartSession()

	if err := cart.Add(ledger, "PRD-A", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.Add(ledger, "PRD-A", 3); err != nil {
		t.Fatalf("merge add: %v", err)
	}

	lines := cart.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 merged line, got %d", len(lines))
	}
	if lines[0].Qty != 5 || lines[0].UnitPriceCents != 1500 {
		t.Fatalf("unexpected merged line %+v", lines[0])
	}

	// A price change after the snapshot does not move the line.
	ledger.products["PRD-A"].PriceCents = 9999
	if err := cart.Add(ledger, "PRD-A", 1); err != nil {
		t.Fatalf("add after price change: %v", err)
	}
	if cart.Lines()[0].UnitPriceCents != 1500 {
		t.Fatalf("expected snapshotted price 1500, got %d", cart.Lines()[0].UnitPriceCents)
	}
}

func TestCartAddBoundedByAvailableStock(t *testing.T) {
	ledger := testLedger()
	cart := newCartSession()

	if err := cart.Add(ledger, "PRD-B", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	// 2 already held of 3 on hand; another 2 exceeds availability.
	if err := cart.Add(ledger, "PRD-B", 2); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if err := cart.Add(ledger, "PRD-B", 1); err != nil {
		t.Fatalf("add up to stock: %v", err)
	}
	if err := cart.Add(ledger, "PRD-GHOST", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCartSetQuantity(t *testing.T) {
	ledger := testLedger()
	cart := newCartSession()

	if err := cart.SetQuantity(ledger, "PRD-A", 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent line, got %v", err)
	}

	if err := cart.Add(ledger, "PRD-A", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.SetQuantity(ledger, "PRD-A", 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for qty 0, got %v", err)
	}
	if err := cart.SetQuantity(ledger, "PRD-A", 11); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if err := cart.SetQuantity(ledger, "PRD-A", 10); err != nil {
		t.Fatalf("set to on-hand max: %v", err)
	}
	if cart.Lines()[0].Qty != 10 {
		t.Fatalf("expected qty 10, got %d", cart.Lines()[0].Qty)
	}
}

func TestCartRemoveAndClear(t *testing.T) {
	ledger := testLedger()
	cart := newCartSession()

	if err := cart.Add(ledger, "PRD-A", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cart.Add(ledger, "PRD-B", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	cart.Remove("PRD-A")
	if len(cart.Lines()) != 1 || cart.Lines()[0].ProductID != "PRD-B" {
		t.Fatalf("unexpected lines after remove: %+v", cart.Lines())
	}
	cart.Remove("PRD-GHOST") // no-op

	cart.Clear()
	if len(cart.Lines()) != 0 {
		t.Fatalf("expected empty cart after clear")
	}
}
