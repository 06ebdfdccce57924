package gateway

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type TxnStatus string

const (
	TxnInitiated TxnStatus = "initiated"
	TxnConfirmed TxnStatus = "confirmed"
	TxnFailed    TxnStatus = "failed"
	TxnCancelled TxnStatus = "cancelled"
)

// PaymentTransaction tracks an in-flight gateway checkout. The RefID is ours
// and unique; the gateway echoes it back in the callback, which is how an
// untrusted payload gets matched to local state.
type PaymentTransaction struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	UserID        uuid.UUID      `db:"user_id" json:"user_id"`
	ItemID        uuid.UUID      `db:"item_id" json:"item_id"`
	RefID         string         `db:"ref_id" json:"ref_id"`
	TokenID       string         `db:"token_id" json:"-"`
	Amount        int64          `db:"amount" json:"amount"`
	Status        TxnStatus      `db:"status" json:"status"`
	TransactionID sql.NullString `db:"transaction_id" json:"transaction_id,omitempty"`
	Msisdn        sql.NullString `db:"msisdn" json:"-"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// CallbackResult tells the HTTP layer where to send the user after the
// gateway posts back.
type CallbackResult struct {
	Outcome string // "confirmed", "failed" or "cancelled"
	RefID   string
}
