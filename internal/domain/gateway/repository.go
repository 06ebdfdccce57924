package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const queryTimeout = 5 * time.Second

const txnColumns = `id, user_id, item_id, ref_id, token_id, amount, status,
	transaction_id, msisdn, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, txn *PaymentTransaction) error
	GetByRefID(ctx context.Context, refID string) (*PaymentTransaction, error)

	// LockByRefID reads the transaction FOR UPDATE inside the caller's
	// database transaction so duplicate callbacks for the same RefID are
	// processed one at a time.
	LockByRefID(ctx context.Context, tx *sqlx.Tx, refID string) (*PaymentTransaction, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, refID string, status TxnStatus, transactionID, msisdn string) error
	UpdateStatus(ctx context.Context, refID string, status TxnStatus) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, txn *PaymentTransaction) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO payment_transactions (id, user_id, item_id, ref_id, token_id, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		txn.ID, txn.UserID, txn.ItemID, txn.RefID, txn.TokenID, txn.Amount, txn.Status,
	).Scan(&txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create payment transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByRefID(ctx context.Context, refID string) (*PaymentTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var txn PaymentTransaction
	query := `SELECT ` + txnColumns + ` FROM payment_transactions WHERE ref_id = $1`
	if err := r.db.GetContext(ctx, &txn, query, refID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTxnNotFound
		}
		return nil, fmt.Errorf("get payment transaction: %w", err)
	}
	return &txn, nil
}

func (r *postgresRepository) LockByRefID(ctx context.Context, tx *sqlx.Tx, refID string) (*PaymentTransaction, error) {
	var txn PaymentTransaction
	query := `SELECT ` + txnColumns + ` FROM payment_transactions WHERE ref_id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &txn, query, refID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTxnNotFound
		}
		return nil, fmt.Errorf("lock payment transaction: %w", err)
	}
	return &txn, nil
}

func (r *postgresRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, refID string, status TxnStatus, transactionID, msisdn string) error {
	query := `
		UPDATE payment_transactions
		SET status = $2,
		    transaction_id = NULLIF($3, ''),
		    msisdn = NULLIF($4, ''),
		    updated_at = NOW()
		WHERE ref_id = $1
	`
	if _, err := tx.ExecContext(ctx, query, refID, status, transactionID, msisdn); err != nil {
		return fmt.Errorf("update payment transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, refID string, status TxnStatus) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE payment_transactions
		SET status = $2, updated_at = NOW()
		WHERE ref_id = $1 AND status = 'initiated'
	`
	if _, err := r.db.ExecContext(ctx, query, refID, status); err != nil {
		return fmt.Errorf("update payment transaction status: %w", err)
	}
	return nil
}
