package pos

import (
	"fmt"
	"slices"

	"warungpos/backend/internal/domain"
)

// Transaction ids live in the closed range [1001, 9999]: a display-friendly
// bounded pool, not a global sequence.
const (
	txIDFloor   = 1000
	txIDCeiling = 9999
)

// transactionStore owns the committed sales of the current shift and their
// lifecycle. After a register close the active list is cleared and the audit
// log becomes the only durable record.
type transactionStore struct {
	transactions []domain.Transaction
}

func newTransactionStore(transactions []domain.Transaction) *transactionStore {
	kept := make([]domain.Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.ID <= txIDFloor || tx.ID > txIDCeiling {
			continue
		}
		kept = append(kept, tx)
	}
	return &transactionStore{transactions: kept}
}

// AllocateID scans the existing ids, takes the maximum (or the floor when
// the store is empty) and assigns max+1. Allocation past the ceiling fails
// explicitly instead of silently wrapping.
func (s *transactionStore) AllocateID() (int, error) {
	maxID := txIDFloor
	for _, tx := range s.transactions {
		if tx.ID > maxID {
			maxID = tx.ID
		}
	}
	next := maxID + 1
	if next > txIDCeiling {
		return 0, fmt.Errorf("%w: no ids left in [%d, %d]", ErrIDSpaceExhausted, txIDFloor+1, txIDCeiling)
	}
	return next, nil
}

func (s *transactionStore) Append(tx domain.Transaction) {
	s.transactions = append(s.transactions, tx)
}

func (s *transactionStore) find(id int) (*domain.Transaction, error) {
	for i := range s.transactions {
		if s.transactions[i].ID == id {
			return &s.transactions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: transaction %d", ErrNotFound, id)
}

func (s *transactionStore) Get(id int) (domain.Transaction, error) {
	tx, err := s.find(id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return cloneTransaction(*tx), nil
}

// List returns the active sales newest-first.
func (s *transactionStore) List() []domain.Transaction {
	list := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		list = append(list, cloneTransaction(tx))
	}
	slices.Reverse(list)
	return list
}

// Replace swaps a completed transaction's lines and payment terms and
// recomputes its totals. The caller has already settled the stock delta.
func (s *transactionStore) Replace(id int, lines []domain.CartLine, paymentMethod string, installments int) (domain.Transaction, error) {
	tx, err := s.find(id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.Status != domain.TxStatusCompleted {
		return domain.Transaction{}, fmt.Errorf("%w: transaction %d is %s", ErrNotEditable, id, tx.Status)
	}

	tx.Lines = cloneLines(lines)
	tx.PaymentMethod = paymentMethod
	tx.Installments = installments
	tx.SubtotalCents, tx.TotalCents = computeTotals(tx.Lines, paymentMethod)
	return cloneTransaction(*tx), nil
}

// Void flips a completed transaction to voided. Lines stay untouched for the
// audit trail; the caller restores the stock.
func (s *transactionStore) Void(id int) (domain.Transaction, error) {
	tx, err := s.find(id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if tx.Status == domain.TxStatusVoided {
		return domain.Transaction{}, fmt.Errorf("%w: transaction %d", ErrAlreadyVoided, id)
	}

	tx.Status = domain.TxStatusVoided
	return cloneTransaction(*tx), nil
}

// Delete permanently removes an already-voided transaction. There is no
// recovery path afterwards.
func (s *transactionStore) Delete(id int) error {
	for i := range s.transactions {
		if s.transactions[i].ID != id {
			continue
		}
		if s.transactions[i].Status != domain.TxStatusVoided {
			return fmt.Errorf("%w: transaction %d", ErrNotVoided, id)
		}
		s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: transaction %d", ErrNotFound, id)
}

// Totals sums the current shift's non-voided sales for the register close
// summary.
func (s *transactionStore) Totals() (salesCount int, totalSalesCents int64) {
	for _, tx := range s.transactions {
		if tx.Status == domain.TxStatusVoided {
			continue
		}
		salesCount++
		totalSalesCents += tx.TotalCents
	}
	return salesCount, totalSalesCents
}

// Clear drops the active list. Called on register close after the summary
// has been flattened into the audit log.
func (s *transactionStore) Clear() {
	s.transactions = s.transactions[:0]
}

func (s *transactionStore) Snapshot() []domain.Transaction {
	snapshot := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		snapshot = append(snapshot, cloneTransaction(tx))
	}
	return snapshot
}

func cloneTransaction(tx domain.Transaction) domain.Transaction {
	tx.Lines = cloneLines(tx.Lines)
	return tx
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	copied := make([]domain.CartLine, len(lines))
	copy(copied, lines)
	return copied
}
