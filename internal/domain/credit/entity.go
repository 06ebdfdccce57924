package credit

import (
	"time"

	"github.com/google/uuid"
)

// Kind defines supported credit ledger entry kinds.
type Kind string

const (
	KindAdded    Kind = "credit_added"
	KindUsed     Kind = "credit_used"
	KindPurchase Kind = "credit_purchase"
	KindBonus    Kind = "credit_bonus"
	KindReferral Kind = "credit_referral"
)

// Valid reports whether k is a known ledger kind
func (k Kind) Valid() bool {
	switch k {
	case KindAdded, KindUsed, KindPurchase, KindBonus, KindReferral:
		return true
	}
	return false
}

// Balance is the live per-user rewrites balance. One row per user; the stored
// amount counts for nothing once the expiration date has passed.
type Balance struct {
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Rewrites       int       `db:"rewrites" json:"rewrites"`
	ExpirationDate time.Time `db:"expiration_date" json:"expiration_date"`
	UpdatedAt      time.Time `db:"updated_at" json:"-"`
}

// Expired reports whether the balance's validity window has passed
func (b *Balance) Expired(now time.Time) bool {
	return b.ExpirationDate.Before(now)
}

// Transaction is an append-only ledger row. Never mutated or deleted.
type Transaction struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Kind        Kind      `db:"kind" json:"kind"`
	Amount      int       `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Analytics summarizes ledger activity for the admin dashboard
type Analytics struct {
	TodaysCreditUsage  int       `json:"todaysCreditUsage"`
	MonthlyCreditUsage int       `json:"monthlyCreditUsage"`
	TotalCreditsAdded  int       `json:"totalCreditsAdded"`
	TotalCreditsUsed   int       `json:"totalCreditsUsed"`
	TopUsers           []TopUser `json:"topUsers"`
}

// TopUser is a row of the top-consumers aggregate
type TopUser struct {
	Name             string `db:"name" json:"name"`
	TotalCreditsUsed int    `db:"total_credits_used" json:"totalCreditsUsed"`
}
