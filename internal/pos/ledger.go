package pos

import (
	"fmt"
	"slices"
	"strings"

	"warungpos/backend/internal/domain"
)

// inventoryLedger owns the authoritative stock count per product. Stock only
// moves through Decrement/Restore/ApplyDelta; nothing else writes it.
//
// The ledger is not safe for concurrent use on its own; the owning Service
// serializes access.
type inventoryLedger struct {
	products map[string]*domain.Product
	order    []string
}

func newInventoryLedger(products []domain.Product) *inventoryLedger {
	l := &inventoryLedger{
		products: make(map[string]*domain.Product, len(products)),
		order:    make([]string, 0, len(products)),
	}
	for i := range products {
		p := migrateProduct(products[i])
		if _, exists := l.products[p.ID]; exists {
			continue
		}
		copied := p
		l.products[p.ID] = &copied
		l.order = append(l.order, p.ID)
	}
	return l
}

// migrateProduct folds the legacy single-category field into the categories
// set. The set form is the only one kept in memory and written back.
func migrateProduct(p domain.Product) domain.Product {
	if p.LegacyCategory != "" && !slices.Contains(p.Categories, p.LegacyCategory) {
		p.Categories = append(p.Categories, p.LegacyCategory)
	}
	p.LegacyCategory = ""
	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Stock < 0 {
		p.Stock = 0
	}
	return p
}

func (l *inventoryLedger) get(productID string) (*domain.Product, error) {
	p, ok := l.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}
	return p, nil
}

// Available reports how many units of a product can still be claimed, given
// the quantity the current cart session already holds. This keeps a single
// session from committing the same unit twice.
func (l *inventoryLedger) Available(productID string, heldQty int) (int, error) {
	p, err := l.get(productID)
	if err != nil {
		return 0, err
	}
	available := p.Stock - heldQty
	if available < 0 {
		available = 0
	}
	return available, nil
}

func (l *inventoryLedger) Decrement(productID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: decrement qty must be positive", ErrInvalidRequest)
	}
	p, err := l.get(productID)
	if err != nil {
		return err
	}
	if qty > p.Stock {
		return fmt.Errorf("%w: product %s has %d on hand, requested %d", ErrInsufficientStock, productID, p.Stock, qty)
	}
	p.Stock -= qty
	return nil
}

// Restore has no upper bound: returns always net out the source transaction
// exactly, so restoring past original capacity is accepted.
func (l *inventoryLedger) Restore(productID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: restore qty must be positive", ErrInvalidRequest)
	}
	p, err := l.get(productID)
	if err != nil {
		return err
	}
	p.Stock += qty
	return nil
}

func (l *inventoryLedger) ApplyDelta(productID string, signedQty int) error {
	switch {
	case signedQty > 0:
		return l.Restore(productID, signedQty)
	case signedQty < 0:
		return l.Decrement(productID, -signedQty)
	default:
		return nil
	}
}

// StockSnapshot copies the current stock levels. The edit algorithm runs its
// undo-then-redo validation against the snapshot so the live ledger stays
// untouched until every new line has validated.
func (l *inventoryLedger) StockSnapshot() map[string]int {
	snapshot := make(map[string]int, len(l.products))
	for id, p := range l.products {
		snapshot[id] = p.Stock
	}
	return snapshot
}

func (l *inventoryLedger) List() []domain.Product {
	products := make([]domain.Product, 0, len(l.order))
	for _, id := range l.order {
		products = append(products, *l.products[id])
	}
	return products
}

func (l *inventoryLedger) Create(p domain.Product) (domain.Product, error) {
	p.ID = strings.ToUpper(strings.TrimSpace(p.ID))
	p.Title = strings.TrimSpace(p.Title)
	p.Categories = normalizeCategories(p.Categories)
	if p.ID == "" || p.Title == "" || len(p.Categories) == 0 {
		return domain.Product{}, fmt.Errorf("%w: id, title and at least one category are required", ErrInvalidRequest)
	}
	if p.PriceCents < 1 || p.PurchasePriceCents < 0 || p.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: invalid price or stock", ErrInvalidRequest)
	}
	if _, exists := l.products[p.ID]; exists {
		return domain.Product{}, fmt.Errorf("%w: product %s already exists", ErrInvalidRequest, p.ID)
	}

	copied := p
	l.products[p.ID] = &copied
	l.order = append(l.order, p.ID)
	return p, nil
}

// Update changes catalog fields only. Stock is deliberately not updatable
// here; it moves exclusively through the ledger operations.
func (l *inventoryLedger) Update(productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	p, err := l.get(productID)
	if err != nil {
		return domain.Product{}, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.Product{}, fmt.Errorf("%w: title must not be empty", ErrInvalidRequest)
		}
		p.Title = title
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, fmt.Errorf("%w: price must be positive", ErrInvalidRequest)
		}
		p.PriceCents = *req.PriceCents
	}
	if req.PurchasePriceCents != nil {
		if *req.PurchasePriceCents < 0 {
			return domain.Product{}, fmt.Errorf("%w: purchase price must not be negative", ErrInvalidRequest)
		}
		p.PurchasePriceCents = *req.PurchasePriceCents
	}
	if req.Categories != nil {
		categories := normalizeCategories(*req.Categories)
		if len(categories) == 0 {
			return domain.Product{}, fmt.Errorf("%w: at least one category is required", ErrInvalidRequest)
		}
		p.Categories = categories
	}

	return *p, nil
}

func normalizeCategories(categories []string) []string {
	normalized := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || slices.Contains(normalized, c) {
			continue
		}
		normalized = append(normalized, c)
	}
	return normalized
}
