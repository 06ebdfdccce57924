package order

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Order is a pending intent to buy a credit pack. It becomes interesting to
// the ledger only once approved.
type Order struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	UserID           uuid.UUID      `db:"user_id" json:"user_id"`
	ItemID           uuid.UUID      `db:"item_id" json:"item_id"`
	OrderID          string         `db:"order_id" json:"order_id"`
	Amount           int64          `db:"amount" json:"amount"`
	PaymentMethod    string         `db:"payment_method" json:"payment_method"`
	Status           Status         `db:"status" json:"status"`
	ExpirationDate   time.Time      `db:"expiration_date" json:"expiration_date"`
	TransactionProof sql.NullString `db:"transaction_proof" json:"-"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// Purchase is the immutable record of a settled order. Exactly one per
// approved Order or confirmed gateway transaction; the unique external
// transaction id is what makes duplicate callbacks harmless.
type Purchase struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	UserID                uuid.UUID `db:"user_id" json:"user_id"`
	ItemID                uuid.UUID `db:"item_id" json:"item_id"`
	ExternalTransactionID string    `db:"external_transaction_id" json:"external_transaction_id"`
	Amount                int64     `db:"amount" json:"amount"`
	PaymentMethod         string    `db:"payment_method" json:"payment_method"`
	ExpirationDate        time.Time `db:"expiration_date" json:"expiration_date"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// Invoice is a memoized display snapshot of a Purchase. Built lazily on
// first request, then served as-is forever.
type Invoice struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PurchaseID    uuid.UUID `db:"purchase_id" json:"purchase_id"`
	InvoiceNumber string    `db:"invoice_number" json:"invoice_number"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	CustomerEmail string    `db:"customer_email" json:"customer_email"`
	ItemTitle     string    `db:"item_title" json:"item_title"`
	Amount        int64     `db:"amount" json:"amount"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	IssuedAt      time.Time `db:"issued_at" json:"issued_at"`
}

// NewOrderID generates the client-visible order identifier, e.g.
// MANUAL_1717430400000_a1b2c3d4.
func NewOrderID(method string) string {
	buf := make([]byte, 4)
	rand.Read(buf)
	prefix := "MANUAL"
	if method == "imepay" {
		prefix = "IMEPAY"
	}
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(buf))
}

// NewInvoiceNumber derives a stable invoice number from the purchase.
func NewInvoiceNumber(p *Purchase) string {
	return fmt.Sprintf("INV-%s-%s", p.CreatedAt.Format("20060102"), p.ID.String()[:8])
}
