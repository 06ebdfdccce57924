package catalog

import (
	"time"

	"github.com/google/uuid"
)

type Tier string

const (
	TierFree     Tier = "free"
	TierMonthly  Tier = "monthly"
	TierYearly   Tier = "yearly"
	TierLifetime Tier = "lifetime"
)

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierMonthly, TierYearly, TierLifetime:
		return true
	}
	return false
}

// ValidityDays is how long purchased credits live for a given tier.
// Lifetime is modelled as a far-future window rather than a NULL expiry so
// every balance row carries a real date.
func (t Tier) ValidityDays() int {
	switch t {
	case TierMonthly:
		return 30
	case TierYearly:
		return 365
	case TierLifetime:
		return 365 * 100
	default:
		return 30
	}
}

// Item is a purchasable credit pack.
type Item struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	Price        int64     `db:"price" json:"price"`
	RewriteLimit int       `db:"rewrite_limit" json:"rewrite_limit"`
	Tier         Tier      `db:"tier" json:"tier"`
	Enabled      bool      `db:"enabled" json:"enabled"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PaymentMethod is an admin-toggleable payment channel shown alongside the
// catalog so clients know which checkout flows are currently open.
type PaymentMethod struct {
	Name      string    `db:"name" json:"name"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	MethodManual = "manual"
	MethodIMEPay = "imepay"
)
