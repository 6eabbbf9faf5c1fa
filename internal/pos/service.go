package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/kv"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service is the reconciliation core: it owns the inventory ledger, the
// transaction store, the register state machine and the audit log, and keeps
// them mutually consistent across checkout, edit, void and register
// open/close.
//
// One mutex guards all four stores. Every operation orders its failure
// checks before any state mutation, so no partial update is ever observable
// even though the backing key-value store has no transactions.
type Service struct {
	mu    sync.Mutex
	store kv.Store

	ledger   *inventoryLedger
	txs      *transactionStore
	register *registerStateMachine
	audit    *auditLog

	// One transient cart session per cashier; discarded on checkout or
	// logout.
	carts map[string]*cartSession
}

// Load reads every owned collection from the key-value collaborator once.
// Missing keys fall back to empty collections (first boot).
func Load(ctx context.Context, store kv.Store) (*Service, error) {
	var products []domain.Product
	if err := loadJSON(ctx, store, kv.KeyInventory, &products); err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	var transactions []domain.Transaction
	if err := loadJSON(ctx, store, kv.KeyTransactions, &transactions); err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	var entries []domain.AuditEntry
	if err := loadJSON(ctx, store, kv.KeyAuditLog, &entries); err != nil {
		return nil, fmt.Errorf("load audit log: %w", err)
	}

	state := domain.RegisterState{}
	if err := loadJSON(ctx, store, kv.KeyRegisterBalance, &state.OpeningBalanceCents); err != nil {
		return nil, fmt.Errorf("load register balance: %w", err)
	}
	if err := loadJSON(ctx, store, kv.KeyRegisterCloseTime, &state.ScheduledCloseTime); err != nil {
		return nil, fmt.Errorf("load register closing time: %w", err)
	}
	closed := true
	if err := loadJSON(ctx, store, kv.KeyRegisterClosedFlag, &closed); err != nil {
		return nil, fmt.Errorf("load register flag: %w", err)
	}
	state.IsOpen = !closed

	return &Service{
		store:    store,
		ledger:   newInventoryLedger(products),
		txs:      newTransactionStore(transactions),
		register: newRegisterStateMachine(state),
		audit:    newAuditLog(entries),
		carts:    make(map[string]*cartSession),
	}, nil
}

func loadJSON(ctx context.Context, store kv.Store, key string, dest any) error {
	payload, err := store.Load(ctx, key)
	if errors.Is(err, kv.ErrNoKey) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

func (s *Service) saveJSON(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, key, payload); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Service) saveInventory(ctx context.Context) error {
	return s.saveJSON(ctx, kv.KeyInventory, s.ledger.List())
}

func (s *Service) saveTransactions(ctx context.Context) error {
	return s.saveJSON(ctx, kv.KeyTransactions, s.txs.Snapshot())
}

func (s *Service) saveAudit(ctx context.Context) error {
	return s.saveJSON(ctx, kv.KeyAuditLog, s.audit.Snapshot())
}

func (s *Service) saveRegister(ctx context.Context) error {
	state := s.register.State()
	if err := s.saveJSON(ctx, kv.KeyRegisterBalance, state.OpeningBalanceCents); err != nil {
		return err
	}
	if err := s.saveJSON(ctx, kv.KeyRegisterCloseTime, state.ScheduledCloseTime); err != nil {
		return err
	}
	return s.saveJSON(ctx, kv.KeyRegisterClosedFlag, !state.IsOpen)
}

func (s *Service) logAudit(action string, user string, details any, reason string) {
	entry := domain.AuditEntry{Action: action, User: user, Reason: reason}
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			log.Printf("[pos] WARN: failed to marshal %s audit details: %v", action, err)
		} else {
			entry.Details = payload
		}
	}
	if err := s.audit.Append(entry); err != nil {
		log.Printf("[pos] WARN: failed to append %s audit entry: %v", action, err)
	}
}

func actorUsername(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor.Username
	}
	return "unknown"
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return nil
}

// Products

func (s *Service) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.List(), nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.ledger.Create(domain.Product{
		ID:                 req.ID,
		Title:              req.Title,
		PriceCents:         req.PriceCents,
		PurchasePriceCents: req.PurchasePriceCents,
		Stock:              req.InitialStock,
		Categories:         req.Categories,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(domain.ActionProductCreated, actorUsername(ctx), created, "")
	if err := s.saveInventory(ctx); err != nil {
		return domain.Product{}, err
	}
	if err := s.saveAudit(ctx); err != nil {
		return domain.Product{}, err
	}
	return created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.ledger.Update(strings.ToUpper(strings.TrimSpace(productID)), req)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(domain.ActionProductUpdated, actorUsername(ctx), updated, "")
	if err := s.saveInventory(ctx); err != nil {
		return domain.Product{}, err
	}
	if err := s.saveAudit(ctx); err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// Cart

func (s *Service) cartFor(user string) *cartSession {
	cart, ok := s.carts[user]
	if !ok {
		cart = newCartSession()
		s.carts[user] = cart
	}
	return cart
}

func (s *Service) Cart(ctx context.Context, paymentMethod string) (domain.CartView, error) {
	method, _, err := normalizePayment(paymentMethod, 0)
	if err != nil {
		return domain.CartView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartFor(actorUsername(ctx))
	lines := cart.Lines()
	subtotal, total := computeTotals(lines, method)
	return domain.CartView{
		Lines:         lines,
		PaymentMethod: method,
		SubtotalCents: subtotal,
		TotalCents:    total,
	}, nil
}

func (s *Service) CartAdd(ctx context.Context, req domain.CartAddRequest) (domain.CartView, error) {
	productID := strings.ToUpper(strings.TrimSpace(req.ProductID))
	if productID == "" {
		return domain.CartView{}, fmt.Errorf("%w: product id required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartFor(actorUsername(ctx))
	if err := cart.Add(s.ledger, productID, req.Qty); err != nil {
		return domain.CartView{}, err
	}
	return s.cartViewLocked(cart), nil
}

func (s *Service) CartSetQuantity(ctx context.Context, req domain.CartSetQuantityRequest) (domain.CartView, error) {
	productID := strings.ToUpper(strings.TrimSpace(req.ProductID))
	if productID == "" {
		return domain.CartView{}, fmt.Errorf("%w: product id required", ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartFor(actorUsername(ctx))
	if err := cart.SetQuantity(s.ledger, productID, req.Qty); err != nil {
		return domain.CartView{}, err
	}
	return s.cartViewLocked(cart), nil
}

func (s *Service) CartRemove(ctx context.Context, productID string) (domain.CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cartFor(actorUsername(ctx))
	cart.Remove(strings.ToUpper(strings.TrimSpace(productID)))
	return s.cartViewLocked(cart), nil
}

// DiscardCart drops the caller's session, e.g. on logout.
func (s *Service) DiscardCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, actorUsername(ctx))
}

func (s *Service) cartViewLocked(cart *cartSession) domain.CartView {
	lines := cart.Lines()
	subtotal, total := computeTotals(lines, domain.PaymentCash)
	return domain.CartView{
		Lines:         lines,
		PaymentMethod: domain.PaymentCash,
		SubtotalCents: subtotal,
		TotalCents:    total,
	}
}

func normalizePayment(method string, installments int) (string, int, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		method = domain.PaymentCash
	}
	switch method {
	case domain.PaymentCash, domain.PaymentDebit:
		if installments > 0 {
			return "", 0, fmt.Errorf("%w: installments are only valid for credit payments", ErrInvalidRequest)
		}
		return method, 0, nil
	case domain.PaymentCredit:
		if installments < 1 {
			installments = 1
		}
		return method, installments, nil
	default:
		return "", 0, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidRequest, method)
	}
}

// Checkout commits the caller's cart atomically. Every failure check
// (register state, cart content, payment terms, per-line stock, id
// allocation) runs before the first stock decrement, so a failing line
// leaves inventory untouched.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.Transaction, error) {
	method, installments, err := normalizePayment(req.PaymentMethod, req.Installments)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.register.IsOpen() {
		return domain.Transaction{}, ErrRegisterClosed
	}

	user := actorUsername(ctx)
	cart := s.cartFor(user)
	lines := cart.Lines()
	if len(lines) == 0 {
		return domain.Transaction{}, ErrEmptyCart
	}

	for _, line := range lines {
		product, err := s.ledger.get(line.ProductID)
		if err != nil {
			return domain.Transaction{}, err
		}
		if line.Qty > product.Stock {
			return domain.Transaction{}, fmt.Errorf("%w: product %s has %d on hand, cart wants %d", ErrInsufficientStock, line.ProductID, product.Stock, line.Qty)
		}
	}

	id, err := s.txs.AllocateID()
	if err != nil {
		return domain.Transaction{}, err
	}

	for _, line := range lines {
		if err := s.ledger.Decrement(line.ProductID, line.Qty); err != nil {
			// Unreachable after pre-validation; fail loudly if it ever is.
			return domain.Transaction{}, err
		}
	}

	subtotal, total := computeTotals(lines, method)
	tx := domain.Transaction{
		ID:            id,
		CreatedAt:     time.Now().UTC(),
		User:          user,
		Lines:         lines,
		PaymentMethod: method,
		Installments:  installments,
		SubtotalCents: subtotal,
		TotalCents:    total,
		Status:        domain.TxStatusCompleted,
	}
	s.txs.Append(tx)
	cart.Clear()

	s.logAudit(domain.ActionSaleCompleted, user, domain.SaleCompletedDetails{
		TransactionID: tx.ID,
		Lines:         tx.Lines,
		PaymentMethod: tx.PaymentMethod,
		Installments:  tx.Installments,
		SubtotalCents: tx.SubtotalCents,
		TotalCents:    tx.TotalCents,
	}, "")

	if err := s.persistSale(ctx); err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

func (s *Service) persistSale(ctx context.Context) error {
	if err := s.saveInventory(ctx); err != nil {
		return err
	}
	if err := s.saveTransactions(ctx); err != nil {
		return err
	}
	return s.saveAudit(ctx)
}

// Transactions

func (s *Service) ListTransactions(_ context.Context) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs.List(), nil
}

func (s *Service) GetTransaction(_ context.Context, id int) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs.Get(id)
}

// EditTransaction replaces a completed transaction's line set with undo-then-
// redo stock semantics. The old sale's stock effect is undone on a scratch
// copy, the new lines are validated against that scratch, and only when
// every line validates is the restore-then-decrement sequence applied to the
// live ledger. A failing line aborts with the live inventory untouched.
func (s *Service) EditTransaction(ctx context.Context, id int, req domain.EditTransactionRequest) (domain.Transaction, error) {
	method, installments, err := normalizePayment(req.PaymentMethod, req.Installments)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.txs.Get(id)
	if err != nil {
		// A transaction archived by a register close is no longer editable;
		// its record survives only in the audit log.
		return domain.Transaction{}, fmt.Errorf("%w: transaction %d is not in the active store", ErrNotEditable, id)
	}
	if current.Status != domain.TxStatusCompleted {
		return domain.Transaction{}, fmt.Errorf("%w: transaction %d is %s", ErrNotEditable, id, current.Status)
	}

	newLines, err := s.normalizeEditLines(req.Lines)
	if err != nil {
		return domain.Transaction{}, err
	}

	// Undo the original sale on a scratch copy, then validate the new line
	// set against it.
	scratch := s.ledger.StockSnapshot()
	for _, line := range current.Lines {
		scratch[line.ProductID] += line.Qty
	}
	for _, line := range newLines {
		remaining := scratch[line.ProductID] - line.Qty
		if remaining < 0 {
			return domain.Transaction{}, fmt.Errorf("%w: product %s would go to %d", ErrInsufficientStock, line.ProductID, remaining)
		}
		scratch[line.ProductID] = remaining
	}

	// Commit: restore old lines, decrement new lines, on the live ledger.
	for _, line := range current.Lines {
		if err := s.ledger.Restore(line.ProductID, line.Qty); err != nil {
			return domain.Transaction{}, err
		}
	}
	for _, line := range newLines {
		if err := s.ledger.Decrement(line.ProductID, line.Qty); err != nil {
			return domain.Transaction{}, err
		}
	}

	updated, err := s.txs.Replace(id, newLines, method, installments)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.logAudit(domain.ActionTransactionEdited, actorUsername(ctx), domain.TransactionEditedDetails{
		TransactionID: updated.ID,
		Lines:         updated.Lines,
		PaymentMethod: updated.PaymentMethod,
		Installments:  updated.Installments,
		SubtotalCents: updated.SubtotalCents,
		TotalCents:    updated.TotalCents,
		Diff:          lineDiff(current.Lines, updated.Lines),
	}, "")

	if err := s.persistSale(ctx); err != nil {
		return domain.Transaction{}, err
	}
	return updated, nil
}

func (s *Service) normalizeEditLines(lines []domain.CartLine) ([]domain.CartLine, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: edited transaction must keep at least one line", ErrInvalidRequest)
	}

	normalized := make([]domain.CartLine, 0, len(lines))
	seen := make(map[string]int, len(lines))
	for _, line := range lines {
		productID := strings.ToUpper(strings.TrimSpace(line.ProductID))
		if productID == "" || line.Qty < 1 {
			return nil, fmt.Errorf("%w: every line needs a product id and qty >= 1", ErrInvalidRequest)
		}
		product, err := s.ledger.get(productID)
		if err != nil {
			return nil, err
		}
		unitPrice := line.UnitPriceCents
		if unitPrice < 1 {
			unitPrice = product.PriceCents
		}
		if idx, ok := seen[productID]; ok {
			normalized[idx].Qty += line.Qty
			continue
		}
		seen[productID] = len(normalized)
		normalized = append(normalized, domain.CartLine{
			ProductID:      productID,
			Qty:            line.Qty,
			UnitPriceCents: unitPrice,
		})
	}
	return normalized, nil
}

// lineDiff captures the per-product quantity change between the old and new
// line sets, covering every product touched by either side.
func lineDiff(oldLines []domain.CartLine, newLines []domain.CartLine) []domain.QtyDiff {
	oldQty := make(map[string]int, len(oldLines))
	for _, line := range oldLines {
		oldQty[line.ProductID] += line.Qty
	}
	newQty := make(map[string]int, len(newLines))
	for _, line := range newLines {
		newQty[line.ProductID] += line.Qty
	}

	order := make([]string, 0, len(oldQty)+len(newQty))
	for _, line := range oldLines {
		if !containsString(order, line.ProductID) {
			order = append(order, line.ProductID)
		}
	}
	for _, line := range newLines {
		if !containsString(order, line.ProductID) {
			order = append(order, line.ProductID)
		}
	}

	diff := make([]domain.QtyDiff, 0, len(order))
	for _, productID := range order {
		before := oldQty[productID]
		after := newQty[productID]
		if before == after {
			continue
		}
		diff = append(diff, domain.QtyDiff{
			ProductID: productID,
			OldQty:    before,
			NewQty:    after,
			Delta:     after - before,
		})
	}
	return diff
}

func containsString(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}

// VoidTransaction restores stock for every line and flips the status. The
// restore needs no validation: putting units back is always safe.
func (s *Service) VoidTransaction(ctx context.Context, id int, reason string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voided, err := s.txs.Void(id)
	if err != nil {
		return domain.Transaction{}, err
	}
	for _, line := range voided.Lines {
		if err := s.ledger.Restore(line.ProductID, line.Qty); err != nil {
			log.Printf("[pos] WARN: void %d could not restore product %s: %v", id, line.ProductID, err)
		}
	}

	s.logAudit(domain.ActionTransactionVoided, actorUsername(ctx), domain.TransactionVoidedDetails{
		TransactionID: voided.ID,
		Lines:         voided.Lines,
		TotalCents:    voided.TotalCents,
	}, strings.TrimSpace(reason))

	if err := s.persistSale(ctx); err != nil {
		return domain.Transaction{}, err
	}
	return voided, nil
}

// DeleteTransaction permanently removes an already-voided transaction. Stock
// was restored at void time, so only the record goes away.
func (s *Service) DeleteTransaction(ctx context.Context, id int, reason string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.txs.Delete(id); err != nil {
		return err
	}

	s.logAudit(domain.ActionPermanentlyDeleted, actorUsername(ctx), domain.PermanentlyDeletedDetails{
		TransactionID: id,
	}, strings.TrimSpace(reason))

	if err := s.saveTransactions(ctx); err != nil {
		return err
	}
	return s.saveAudit(ctx)
}

// Register

func (s *Service) RegisterState(_ context.Context) domain.RegisterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.register.State()
}

func (s *Service) OpenRegister(ctx context.Context, req domain.RegisterOpenRequest) (domain.RegisterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.register.Open(req.OpeningBalanceCents, strings.TrimSpace(req.ScheduledCloseTime)); err != nil {
		return domain.RegisterState{}, err
	}

	state := s.register.State()
	s.logAudit(domain.ActionRegisterOpened, actorUsername(ctx), domain.RegisterOpenedDetails{
		OpeningBalanceCents: state.OpeningBalanceCents,
		ScheduledCloseTime:  state.ScheduledCloseTime,
	}, "")

	if err := s.saveRegister(ctx); err != nil {
		return domain.RegisterState{}, err
	}
	if err := s.saveAudit(ctx); err != nil {
		return domain.RegisterState{}, err
	}
	return state, nil
}

func (s *Service) CloseRegister(ctx context.Context) (domain.RegisterCloseSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked(ctx, domain.CloseTriggerManual, actorUsername(ctx))
}

// closeLocked archives the shift by flattening it into the audit log: the
// close summary is appended, then the active transaction list is cleared.
// Transaction detail is only recoverable from the log afterwards.
func (s *Service) closeLocked(ctx context.Context, trigger string, user string) (domain.RegisterCloseSummary, error) {
	salesCount, totalSales := s.txs.Totals()
	summary, err := s.register.Close(trigger, salesCount, totalSales)
	if err != nil {
		return domain.RegisterCloseSummary{}, err
	}

	s.logAudit(domain.ActionRegisterClosed, user, domain.RegisterClosedDetails{
		SalesCount:          summary.SalesCount,
		TotalSalesCents:     summary.TotalSalesCents,
		OpeningBalanceCents: summary.OpeningBalanceCents,
		FinalBalanceCents:   summary.FinalBalanceCents,
		Trigger:             summary.Trigger,
	}, "")
	s.txs.Clear()

	if err := s.saveTransactions(ctx); err != nil {
		return domain.RegisterCloseSummary{}, err
	}
	if err := s.saveRegister(ctx); err != nil {
		return domain.RegisterCloseSummary{}, err
	}
	if err := s.saveAudit(ctx); err != nil {
		return domain.RegisterCloseSummary{}, err
	}
	return summary, nil
}

// CloseIfDue is the periodic automatic-close check. The open-state guard
// inside CloseDue runs before the time comparison, which makes the trigger
// idempotent within the scheduled minute.
func (s *Service) CloseIfDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.register.CloseDue(now) {
		return
	}
	summary, err := s.closeLocked(ctx, domain.CloseTriggerAutomatic, "system")
	if err != nil {
		log.Printf("[pos] WARN: automatic close failed: %v", err)
		return
	}
	log.Printf("[pos] register closed automatically at %s: %d sales, total %s cents",
		now.Format("15:04"), summary.SalesCount, strconv.FormatInt(summary.TotalSalesCents, 10))
}

// Audit log

func (s *Service) ListAuditEntries(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit < 1 {
		limit = 100
	}
	return s.audit.List(limit), nil
}

// ClearAuditLog is the separately-authorized maintenance operation; it is
// not part of the reconciliation flow.
func (s *Service) ClearAuditLog(ctx context.Context, reason string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit.Clear()
	s.logAudit(domain.ActionAuditLogCleared, actorUsername(ctx), nil, strings.TrimSpace(reason))
	return s.saveAudit(ctx)
}

// SalesHistory rebuilds the durable sales record from the audit log. This is
// the read path once a register close has cleared the active store.
func (s *Service) SalesHistory(_ context.Context) ([]domain.ArchivedSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replaySales(s.audit.chronological()), nil
}
