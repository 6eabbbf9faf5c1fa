package pos

import (
	"fmt"
	"slices"
	"time"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/xid"
)

// auditLog is the append-only event sink every mutation writes to. Entries
// are never mutated; removal only happens through the separately-authorized
// maintenance clear.
type auditLog struct {
	entries []domain.AuditEntry
}

func newAuditLog(entries []domain.AuditEntry) *auditLog {
	return &auditLog{entries: entries}
}

func (a *auditLog) Append(entry domain.AuditEntry) error {
	if entry.Action == "" {
		return fmt.Errorf("%w: audit action must not be empty", ErrInvalidRequest)
	}
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	a.entries = append(a.entries, entry)
	return nil
}

// List returns entries newest-first.
func (a *auditLog) List(limit int) []domain.AuditEntry {
	entries := make([]domain.AuditEntry, len(a.entries))
	copy(entries, a.entries)
	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Oldest-first view, used by the history replayer.
func (a *auditLog) chronological() []domain.AuditEntry {
	entries := make([]domain.AuditEntry, len(a.entries))
	copy(entries, a.entries)
	return entries
}

func (a *auditLog) Clear() {
	a.entries = a.entries[:0]
}

func (a *auditLog) Snapshot() []domain.AuditEntry {
	return a.chronological()
}
