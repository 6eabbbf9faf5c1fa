package pos

import (
	"encoding/json"
	"log"
	"slices"

	"warungpos/backend/internal/domain"
)

type replayedSale struct {
	sale    domain.ArchivedSale
	deleted bool
}

// replaySales reconstructs the sales history from audit entries alone. After
// a register close the transaction store is cleared, so the log is the only
// durable record; the history view replays it from the oldest entry forward.
//
// Transaction ids restart at 1001 every shift, so they only identify a sale
// within its own shift. Edit, void and delete events bind to the most recent
// live sale with that id, and a register close freezes every sale from the
// shift it ends; later shifts reusing an id never touch them.
func replaySales(entries []domain.AuditEntry) []domain.ArchivedSale {
	sales := make([]*replayedSale, 0, len(entries))
	live := make(map[int]*replayedSale)

	for _, entry := range entries {
		switch entry.Action {
		case domain.ActionSaleCompleted:
			var details domain.SaleCompletedDetails
			if err := json.Unmarshal(entry.Details, &details); err != nil {
				log.Printf("[pos] WARN: skipping malformed %s audit entry %s: %v", entry.Action, entry.ID, err)
				continue
			}
			sale := &replayedSale{sale: domain.ArchivedSale{
				TransactionID: details.TransactionID,
				CompletedAt:   entry.Timestamp,
				User:          entry.User,
				Lines:         details.Lines,
				PaymentMethod: details.PaymentMethod,
				TotalCents:    details.TotalCents,
			}}
			sales = append(sales, sale)
			live[details.TransactionID] = sale

		case domain.ActionTransactionEdited:
			var details domain.TransactionEditedDetails
			if err := json.Unmarshal(entry.Details, &details); err != nil {
				log.Printf("[pos] WARN: skipping malformed %s audit entry %s: %v", entry.Action, entry.ID, err)
				continue
			}
			sale, ok := live[details.TransactionID]
			if !ok {
				continue
			}
			sale.sale.Lines = details.Lines
			sale.sale.PaymentMethod = details.PaymentMethod
			sale.sale.TotalCents = details.TotalCents

		case domain.ActionTransactionVoided:
			var details domain.TransactionVoidedDetails
			if err := json.Unmarshal(entry.Details, &details); err != nil {
				log.Printf("[pos] WARN: skipping malformed %s audit entry %s: %v", entry.Action, entry.ID, err)
				continue
			}
			if sale, ok := live[details.TransactionID]; ok {
				sale.sale.Voided = true
			}

		case domain.ActionPermanentlyDeleted:
			var details domain.PermanentlyDeletedDetails
			if err := json.Unmarshal(entry.Details, &details); err != nil {
				log.Printf("[pos] WARN: skipping malformed %s audit entry %s: %v", entry.Action, entry.ID, err)
				continue
			}
			if sale, ok := live[details.TransactionID]; ok {
				sale.deleted = true
				delete(live, details.TransactionID)
			}

		case domain.ActionRegisterClosed:
			// The close archives the shift; nothing after it can reach these
			// sales even when a later shift reuses their ids.
			live = make(map[int]*replayedSale)
		}
	}

	result := make([]domain.ArchivedSale, 0, len(sales))
	for _, sale := range sales {
		if sale.deleted {
			continue
		}
		result = append(result, sale.sale)
	}
	slices.Reverse(result)
	return result
}
