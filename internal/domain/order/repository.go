package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 5 * time.Second

const orderColumns = `id, user_id, item_id, order_id, amount, payment_method, status,
	expiration_date, transaction_proof, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByOrderID(ctx context.Context, orderID string) (*Order, error)

	// Transition moves an order from one of the given states to the target
	// state in a single statement. Returns ErrInvalidState when the order is
	// not in an allowed source state (or does not exist as the caller's).
	Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, proof *string) (*Order, error)

	// LockByID reads the order FOR UPDATE inside the caller's transaction,
	// serializing concurrent approvals of the same order.
	LockByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Order, error)
	MarkApprovedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	CreatePurchaseTx(ctx context.Context, tx *sqlx.Tx, p *Purchase) error

	List(ctx context.Context, f ListFilter) ([]AdminOrder, error)
	ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Order, error)

	GetPurchase(ctx context.Context, id uuid.UUID) (*Purchase, error)
	ListPurchases(ctx context.Context, userID uuid.UUID) ([]Purchase, error)

	GetInvoiceByPurchase(ctx context.Context, purchaseID uuid.UUID) (*Invoice, error)
	CreateInvoice(ctx context.Context, inv *Invoice) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO orders (id, user_id, item_id, order_id, amount, payment_method, status, expiration_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		o.ID, o.UserID, o.ItemID, o.OrderID, o.Amount,
		o.PaymentMethod, o.Status, o.ExpirationDate,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var o Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

func (r *postgresRepository) GetByOrderID(ctx context.Context, orderID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var o Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	if err := r.db.GetContext(ctx, &o, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order by order_id: %w", err)
	}
	return &o, nil
}

func (r *postgresRepository) Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, proof *string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	var o Order
	query := `
		UPDATE orders
		SET status = $2,
		    transaction_proof = COALESCE($3, transaction_proof),
		    updated_at = NOW()
		WHERE id = $1 AND status::text = ANY($4)
		RETURNING ` + orderColumns

	err := r.db.GetContext(ctx, &o, query, id, to, proof, pq.Array(states))
	if err == nil {
		return &o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition order: %w", err)
	}

	// No row matched: either the order is unknown or it is in a state the
	// transition does not allow. Distinguish for the caller.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInvalidState
}

func (r *postgresRepository) LockByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Order, error) {
	var o Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &o, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return &o, nil
}

func (r *postgresRepository) MarkApprovedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, StatusApproved,
	)
	if err != nil {
		return fmt.Errorf("mark order approved: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) CreatePurchaseTx(ctx context.Context, tx *sqlx.Tx, p *Purchase) error {
	query := `
		INSERT INTO purchases (id, user_id, item_id, external_transaction_id, amount, payment_method, expiration_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := tx.QueryRowxContext(ctx, query,
		p.ID, p.UserID, p.ItemID, p.ExternalTransactionID,
		p.Amount, p.PaymentMethod, p.ExpirationDate,
	).Scan(&p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCallback
		}
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, f ListFilter) ([]AdminOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(`
		SELECT o.id, o.user_id, o.item_id, o.order_id, o.amount, o.payment_method,
		       o.status, o.expiration_date, o.transaction_proof, o.created_at, o.updated_at,
		       u.name AS user_name, u.email AS user_email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE 1=1
	`)

	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != nil {
		sb.WriteString(" AND o.user_id = " + arg(*f.UserID))
	}
	if f.Status != "" {
		sb.WriteString(" AND o.status = " + arg(f.Status))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		sb.WriteString(" AND (o.order_id ILIKE " + p + " OR u.name ILIKE " + p + " OR u.email ILIKE " + p + ")")
	}

	sortCol := "o.created_at"
	switch f.SortBy {
	case "amount":
		sortCol = "o.amount"
	case "status":
		sortCol = "o.status"
	case "updated_at":
		sortCol = "o.updated_at"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s", sortCol, dir))

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	sb.WriteString(" LIMIT " + arg(limit) + " OFFSET " + arg(f.Offset))

	rows := []AdminOrder{}
	if err := r.db.SelectContext(ctx, &rows, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return rows, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sb strings.Builder
	sb.WriteString(`
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
	`)

	args := []interface{}{userID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		sb.WriteString(" AND status = " + arg(f.Status))
	}
	if f.Search != "" {
		sb.WriteString(" AND order_id ILIKE " + arg("%"+f.Search+"%"))
	}

	sortCol := "created_at"
	switch f.SortBy {
	case "amount":
		sortCol = "amount"
	case "status":
		sortCol = "status"
	case "updated_at":
		sortCol = "updated_at"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s", sortCol, dir))

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	sb.WriteString(" LIMIT " + arg(limit) + " OFFSET " + arg(f.Offset))

	orders := []Order{}
	if err := r.db.SelectContext(ctx, &orders, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list user orders: %w", err)
	}
	return orders, nil
}

func (r *postgresRepository) GetPurchase(ctx context.Context, id uuid.UUID) (*Purchase, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var p Purchase
	query := `
		SELECT id, user_id, item_id, external_transaction_id, amount, payment_method, expiration_date, created_at
		FROM purchases WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	return &p, nil
}

func (r *postgresRepository) ListPurchases(ctx context.Context, userID uuid.UUID) ([]Purchase, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	purchases := []Purchase{}
	query := `
		SELECT id, user_id, item_id, external_transaction_id, amount, payment_method, expiration_date, created_at
		FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &purchases, query, userID); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}

func (r *postgresRepository) GetInvoiceByPurchase(ctx context.Context, purchaseID uuid.UUID) (*Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var inv Invoice
	query := `
		SELECT id, purchase_id, invoice_number, customer_name, customer_email,
		       item_title, amount, payment_method, issued_at
		FROM invoices WHERE purchase_id = $1
	`
	if err := r.db.GetContext(ctx, &inv, query, purchaseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

func (r *postgresRepository) CreateInvoice(ctx context.Context, inv *Invoice) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO invoices (id, purchase_id, invoice_number, customer_name, customer_email,
		                      item_title, amount, payment_method, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (purchase_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.PurchaseID, inv.InvoiceNumber, inv.CustomerName, inv.CustomerEmail,
		inv.ItemTitle, inv.Amount, inv.PaymentMethod, inv.IssuedAt,
	); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}
