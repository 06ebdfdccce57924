package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Service owns the per-user consumable balance and its append-only ledger
type Service struct {
	repo        *Repository
	freeCredits int
	validity    time.Duration
}

// NewService creates a credit service. freeCredits is the amount lazily
// granted to users without a balance; validityDays bounds how long any grant
// stays spendable.
func NewService(db *sqlx.DB, freeCredits, validityDays int) *Service {
	return &Service{
		repo:        NewRepository(db),
		freeCredits: freeCredits,
		validity:    time.Duration(validityDays) * 24 * time.Hour,
	}
}

// GetBalance returns the user's current balance and expiration date.
// Provisions the default free balance on first read; resets an expired
// balance to zero before returning it.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	return s.repo.GetOrProvision(ctx, userID, s.freeCredits, s.validity)
}

// Debit consumes credits. Fails with ErrInsufficientCredits when the
// post-expiry balance cannot cover the amount.
func (s *Service) Debit(ctx context.Context, userID uuid.UUID, amount int, description string) error {
	return s.repo.Debit(ctx, userID, amount, description)
}

// Credit grants credits of the given kind and extends the expiration to
// max(current, newExpiration). Idempotency is the caller's responsibility.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int, kind Kind, newExpiration time.Time, description string) error {
	return s.repo.Credit(ctx, userID, amount, kind, newExpiration, description)
}

// CreditTx grants credits inside the caller's transaction (see Repository.CreditTx)
func (s *Service) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, kind Kind, newExpiration time.Time, description string) error {
	return s.repo.CreditTx(ctx, tx, userID, amount, kind, newExpiration, description)
}

// DefaultExpiration returns now plus the configured validity window
func (s *Service) DefaultExpiration() time.Time {
	return time.Now().Add(s.validity)
}

// FreeCredits returns the configured free grant amount
func (s *Service) FreeCredits() int {
	return s.freeCredits
}

// ListTransactions returns paginated ledger history for a user
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// Analytics returns aggregate ledger statistics (admin)
func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	return s.repo.Analytics(ctx)
}
