package domain

import (
	"encoding/json"
	"time"
)

// Product stock is only ever mutated through the inventory ledger; handlers
// and views read it but never assign it directly.
type Product struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	PriceCents         int64    `json:"price_cents"`
	PurchasePriceCents int64    `json:"purchase_price_cents"`
	Stock              int      `json:"stock"`
	Categories         []string `json:"categories"`

	// LegacyCategory carries the old single-category field from persisted
	// payloads written before the multi-category migration. It is folded
	// into Categories at load and never written back.
	LegacyCategory string `json:"category,omitempty"`
}

type ProductCreateRequest struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	PriceCents         int64    `json:"price_cents"`
	PurchasePriceCents int64    `json:"purchase_price_cents"`
	InitialStock       int      `json:"initial_stock"`
	Categories         []string `json:"categories"`
}

type ProductUpdateRequest struct {
	Title              *string   `json:"title,omitempty"`
	PriceCents         *int64    `json:"price_cents,omitempty"`
	PurchasePriceCents *int64    `json:"purchase_price_cents,omitempty"`
	Categories         *[]string `json:"categories,omitempty"`
}

// CartLine exists only within a cashier session; it is discarded on checkout
// or logout. UnitPriceCents is the price snapshot taken when the line was
// added.
type CartLine struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type CartView struct {
	Lines         []CartLine `json:"lines"`
	PaymentMethod string     `json:"payment_method"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TotalCents    int64      `json:"total_cents"`
}

type Transaction struct {
	ID            int        `json:"id"`
	CreatedAt     time.Time  `json:"created_at"`
	User          string     `json:"user"`
	Lines         []CartLine `json:"lines"`
	PaymentMethod string     `json:"payment_method"`
	Installments  int        `json:"installments"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TotalCents    int64      `json:"total_cents"`
	Status        string     `json:"status"`
}

type RegisterState struct {
	IsOpen              bool   `json:"is_open"`
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
	ScheduledCloseTime  string `json:"scheduled_close_time"`
}

// AuditEntry is immutable once appended. Insertion order is the log's only
// ordering guarantee; reads return newest first.
type AuditEntry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Action    string          `json:"action"`
	User      string          `json:"user"`
	Details   json.RawMessage `json:"details,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// Typed audit payloads, marshaled into AuditEntry.Details.

type SaleCompletedDetails struct {
	TransactionID int        `json:"transaction_id"`
	Lines         []CartLine `json:"lines"`
	PaymentMethod string     `json:"payment_method"`
	Installments  int        `json:"installments,omitempty"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TotalCents    int64      `json:"total_cents"`
}

type QtyDiff struct {
	ProductID string `json:"product_id"`
	OldQty    int    `json:"old_qty"`
	NewQty    int    `json:"new_qty"`
	Delta     int    `json:"delta"`
}

type TransactionEditedDetails struct {
	TransactionID int        `json:"transaction_id"`
	Lines         []CartLine `json:"lines"`
	PaymentMethod string     `json:"payment_method"`
	Installments  int        `json:"installments,omitempty"`
	SubtotalCents int64      `json:"subtotal_cents"`
	TotalCents    int64      `json:"total_cents"`
	Diff          []QtyDiff  `json:"diff"`
}

type TransactionVoidedDetails struct {
	TransactionID int        `json:"transaction_id"`
	Lines         []CartLine `json:"lines"`
	TotalCents    int64      `json:"total_cents"`
}

type PermanentlyDeletedDetails struct {
	TransactionID int `json:"transaction_id"`
}

type RegisterOpenedDetails struct {
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
	ScheduledCloseTime  string `json:"scheduled_close_time"`
}

type RegisterClosedDetails struct {
	SalesCount          int    `json:"sales_count"`
	TotalSalesCents     int64  `json:"total_sales_cents"`
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
	FinalBalanceCents   int64  `json:"final_balance_cents"`
	Trigger             string `json:"trigger"`
}

// Requests and responses for the HTTP surface.

type CartAddRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type CartSetQuantityRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method"`
	Installments  int    `json:"installments"`
}

type EditTransactionRequest struct {
	Lines         []CartLine `json:"lines"`
	PaymentMethod string     `json:"payment_method"`
	Installments  int        `json:"installments"`
}

type VoidTransactionRequest struct {
	Reason string `json:"reason"`
}

type RegisterOpenRequest struct {
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
	ScheduledCloseTime  string `json:"scheduled_close_time"`
}

type RegisterCloseSummary struct {
	SalesCount          int    `json:"sales_count"`
	TotalSalesCents     int64  `json:"total_sales_cents"`
	OpeningBalanceCents int64  `json:"opening_balance_cents"`
	FinalBalanceCents   int64  `json:"final_balance_cents"`
	Trigger             string `json:"trigger"`
}

// ArchivedSale is a transaction reconstructed from audit entries after a
// register close has cleared the active store.
type ArchivedSale struct {
	TransactionID int        `json:"transaction_id"`
	CompletedAt   time.Time  `json:"completed_at"`
	User          string     `json:"user"`
	Lines         []CartLine `json:"lines"`
	PaymentMethod string     `json:"payment_method"`
	TotalCents    int64      `json:"total_cents"`
	Voided        bool       `json:"voided"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

const (
	PaymentCash   = "cash"
	PaymentDebit  = "debit"
	PaymentCredit = "credit"
)

const (
	TxStatusCompleted = "completed"
	TxStatusVoided    = "voided"
)

const (
	CloseTriggerManual    = "manual"
	CloseTriggerAutomatic = "automatic"
)

const (
	ActionSaleCompleted      = "sale_completed"
	ActionTransactionEdited  = "transaction_edited"
	ActionTransactionVoided  = "transaction_voided"
	ActionPermanentlyDeleted = "transaction_deleted"
	ActionRegisterOpened     = "register_opened"
	ActionRegisterClosed     = "register_closed"
	ActionProductCreated     = "product_created"
	ActionProductUpdated     = "product_updated"
	ActionAuditLogCleared    = "audit_log_cleared"
)
