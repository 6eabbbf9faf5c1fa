package kv

import (
	"context"
	"errors"
)

// ErrNoKey is returned by Load when the key has never been saved. Callers
// fall back to their zero-value default.
var ErrNoKey = errors.New("key not found")

// Store is the durable key-value collaborator. Each key holds the full
// serialized collection it owns; there are no partial updates.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// Collection keys owned by the reconciliation core.
const (
	KeyInventory          = "inventory"
	KeyTransactions       = "transactions"
	KeyAuditLog           = "audit-log"
	KeyRegisterBalance    = "register-opening-balance"
	KeyRegisterClosedFlag = "register-closed-flag"
	KeyRegisterCloseTime  = "register-closing-time"
)
