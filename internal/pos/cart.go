package pos

import (
	"fmt"
	"math"

	"warungpos/backend/internal/domain"
)

// cartSession is the transient pre-commit staging area for one cashier. It
// never mutates inventory; every add or update is only bounded by what the
// ledger reports as available.
type cartSession struct {
	lines []domain.CartLine
}

func newCartSession() *cartSession {
	return &cartSession{lines: make([]domain.CartLine, 0, 8)}
}

func (c *cartSession) heldQty(productID string) int {
	for _, line := range c.lines {
		if line.ProductID == productID {
			return line.Qty
		}
	}
	return 0
}

// Add upserts a line, merging quantity if the product is already present.
// The unit price is snapshotted on first add and kept on merge.
func (c *cartSession) Add(ledger *inventoryLedger, productID string, qty int) error {
	if qty < 1 {
		qty = 1
	}
	available, err := ledger.Available(productID, c.heldQty(productID))
	if err != nil {
		return err
	}
	if available < qty {
		return fmt.Errorf("%w: product %s has %d available", ErrOutOfStock, productID, available)
	}

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Qty += qty
			return nil
		}
	}

	product, err := ledger.get(productID)
	if err != nil {
		return err
	}
	c.lines = append(c.lines, domain.CartLine{
		ProductID:      productID,
		Qty:            qty,
		UnitPriceCents: product.PriceCents,
	})
	return nil
}

// SetQuantity replaces a line's quantity. The cart may approach but never
// exceed on-hand stock. Quantities below one are rejected rather than
// treated as removal.
func (c *cartSession) SetQuantity(ledger *inventoryLedger, productID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidRequest)
	}
	product, err := ledger.get(productID)
	if err != nil {
		return err
	}
	if qty > product.Stock {
		return fmt.Errorf("%w: product %s has %d on hand", ErrOutOfStock, productID, product.Stock)
	}

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Qty = qty
			return nil
		}
	}
	return fmt.Errorf("%w: product %s is not in the cart", ErrNotFound, productID)
}

func (c *cartSession) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *cartSession) Clear() {
	c.lines = c.lines[:0]
}

func (c *cartSession) Lines() []domain.CartLine {
	lines := make([]domain.CartLine, len(c.lines))
	copy(lines, c.lines)
	return lines
}

// computeTotals is the system's only pricing rule: subtotal is the sum of
// unit price times quantity, and credit payments carry a flat 10% surcharge.
// Installment count never scales the total.
func computeTotals(lines []domain.CartLine, paymentMethod string) (subtotal int64, total int64) {
	for _, line := range lines {
		subtotal += line.UnitPriceCents * int64(line.Qty)
	}
	total = subtotal
	if paymentMethod == domain.PaymentCredit {
		total = subtotal + int64(math.Round(float64(subtotal)*0.10))
	}
	return subtotal, total
}
