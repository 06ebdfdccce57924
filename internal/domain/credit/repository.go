package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository provides balance and ledger operations. All balance mutations
// take a row lock on the user's balance so concurrent debits and credits for
// the same user serialize instead of losing updates.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// GetOrProvision returns the user's balance, creating a default free balance
// when none exists and resetting the stored amount to zero when the
// expiration date has passed. The expiry reset is destructive and silent.
func (r *Repository) GetOrProvision(ctx context.Context, userID uuid.UUID, freeCredits int, validity time.Duration) (*Balance, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	balance, err := r.lockBalance(ctx2, tx, userID)
	if err != nil {
		return nil, err
	}

	if balance == nil {
		balance = &Balance{
			UserID:         userID,
			Rewrites:       freeCredits,
			ExpirationDate: time.Now().Add(validity),
		}
		if _, err := tx.ExecContext(ctx2, `
			INSERT INTO rewrites (user_id, rewrites, expiration_date)
			VALUES ($1, $2, $3)
		`, balance.UserID, balance.Rewrites, balance.ExpirationDate); err != nil {
			return nil, fmt.Errorf("%w: provision balance", ErrInternal)
		}
	} else if err := r.resetIfExpired(ctx2, tx, balance); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return balance, nil
}

// Debit decrements the balance and appends a credit_used ledger entry in one
// transaction. The expiry check happens under the same row lock, so a debit
// can never land on a stale, expired balance.
func (r *Repository) Debit(ctx context.Context, userID uuid.UUID, amount int, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	balance, err := r.lockBalance(ctx2, tx, userID)
	if err != nil {
		return err
	}
	if balance == nil {
		return ErrInsufficientCredits
	}
	if err := r.resetIfExpired(ctx2, tx, balance); err != nil {
		return err
	}
	if balance.Rewrites < amount {
		return ErrInsufficientCredits
	}

	if _, err := tx.ExecContext(ctx2, `
		UPDATE rewrites SET rewrites = rewrites - $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount); err != nil {
		return fmt.Errorf("%w: debit balance", ErrInternal)
	}

	if err := insertLedger(ctx2, tx, userID, KindUsed, amount, description); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}

// Credit adds to the balance in its own transaction
func (r *Repository) Credit(ctx context.Context, userID uuid.UUID, amount int, kind Kind, newExpiration time.Time, description string) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := r.CreditTx(ctx2, tx, userID, amount, kind, newExpiration, description); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}

// CreditTx adds to the balance within an external transaction, so order
// approval can commit the status change, the purchase row, and the ledger
// credit as one unit. Does NOT commit or roll back; the caller owns the tx.
// The expiration only ever moves forward: extended to newExpiration when that
// is later than the current one.
func (r *Repository) CreditTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, amount int, kind Kind, newExpiration time.Time, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !kind.Valid() || kind == KindUsed {
		return ErrInvalidKind
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO rewrites (user_id, rewrites, expiration_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET rewrites        = rewrites.rewrites + EXCLUDED.rewrites,
		    expiration_date = GREATEST(rewrites.expiration_date, EXCLUDED.expiration_date),
		    updated_at      = NOW()
	`, userID, amount, newExpiration); err != nil {
		return fmt.Errorf("%w: credit balance", ErrInternal)
	}

	return insertLedger(ctx, tx, userID, kind, amount, description)
}

// ListTransactions returns the user's ledger history, newest first
func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	transactions := make([]Transaction, 0)
	err := r.db.SelectContext(ctx2, &transactions, `
		SELECT id, user_id, kind, amount, description, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}

	return transactions, nil
}

func (r *Repository) lockBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (*Balance, error) {
	var balance Balance
	err := tx.GetContext(ctx, &balance, `
		SELECT user_id, rewrites, expiration_date, updated_at
		FROM rewrites WHERE user_id = $1 FOR UPDATE
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: lock balance row", ErrInternal)
	}
	return &balance, nil
}

func (r *Repository) resetIfExpired(ctx context.Context, tx *sqlx.Tx, balance *Balance) error {
	if !balance.Expired(time.Now()) || balance.Rewrites == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE rewrites SET rewrites = 0, updated_at = NOW() WHERE user_id = $1
	`, balance.UserID); err != nil {
		return fmt.Errorf("%w: reset expired balance", ErrInternal)
	}
	balance.Rewrites = 0
	return nil
}

func insertLedger(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, kind Kind, amount int, description string) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, user_id, kind, amount, description)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
	`, userID, kind, amount, description); err != nil {
		return fmt.Errorf("%w: insert ledger entry", ErrInternal)
	}

	return nil
}
