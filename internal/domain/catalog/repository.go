package catalog

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

const itemColumns = `id, title, description, price, rewrite_limit, tier, enabled, created_at, updated_at`

type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	List(ctx context.Context, enabledOnly bool) ([]Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID) error

	ListMethods(ctx context.Context) ([]PaymentMethod, error)
	GetMethod(ctx context.Context, name string) (*PaymentMethod, error)
	SetMethod(ctx context.Context, name string, enabled bool) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, item *Item) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO items (id, title, description, price, rewrite_limit, tier, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		item.ID, item.Title, item.Description, item.Price,
		item.RewriteLimit, item.Tier, item.Enabled,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var item Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

func (r *postgresRepository) List(ctx context.Context, enabledOnly bool) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + itemColumns + ` FROM items`
	if enabledOnly {
		query += ` WHERE enabled = TRUE`
	}
	query += ` ORDER BY price ASC`

	items := []Item{}
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (r *postgresRepository) Update(ctx context.Context, item *Item) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE items
		SET title = $2, description = $3, price = $4, rewrite_limit = $5,
		    tier = $6, enabled = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		item.ID, item.Title, item.Description, item.Price,
		item.RewriteLimit, item.Tier, item.Enabled,
	).Scan(&item.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) ListMethods(ctx context.Context) ([]PaymentMethod, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	methods := []PaymentMethod{}
	query := `SELECT name, enabled, updated_at FROM payment_methods ORDER BY name`
	if err := r.db.SelectContext(ctx, &methods, query); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

func (r *postgresRepository) GetMethod(ctx context.Context, name string) (*PaymentMethod, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var method PaymentMethod
	query := `SELECT name, enabled, updated_at FROM payment_methods WHERE name = $1`
	if err := r.db.GetContext(ctx, &method, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMethodNotFound
		}
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	return &method, nil
}

func (r *postgresRepository) SetMethod(ctx context.Context, name string, enabled bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO payment_methods (name, enabled)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE
		SET enabled = EXCLUDED.enabled, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, name, enabled); err != nil {
		return fmt.Errorf("set payment method: %w", err)
	}
	return nil
}
