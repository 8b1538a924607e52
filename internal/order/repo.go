// Package order places and tracks orders.
package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/storage/postgres"
)

var (
	ErrNotFound   = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrNotPending = fmt.Errorf("%w: order is not pending", apperr.ErrConflict)
	ErrCanceled   = fmt.Errorf("%w: order is canceled", apperr.ErrConflict)
)

// Filters are the filter tokens accepted by order listings.
var Filters = listing.Filters{
	"Pending":  listing.Eq("status", StatusPending),
	"Paid":     listing.Eq("status", StatusPaid),
	"Shipped":  listing.Eq("status", StatusShipped),
	"Canceled": listing.Eq("status", StatusCanceled),
}

type Repository interface {
	// Create stores o and assigns the next order number to o.ID.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, q listing.Query) ([]Order, int64, error)
	// SetStatus changes the status of an order that is not canceled and
	// returns the order as it was before. A canceled order yields ErrCanceled.
	SetStatus(ctx context.Context, id int64, status string) (*Order, error)
	// Pay merges payment into a pending order of owner and marks it paid.
	Pay(ctx context.Context, id int64, owner string, payment map[string]any) error
	Delete(ctx context.Context, id int64) (bool, error)
}

var pgColumns = postgres.Columns{
	Fields: map[string]string{"owner": "owner", "status": "status"},
	Search: "search",
	Newest: "id DESC",
}

const pgSelect = `
	SELECT id, owner, items::text, total::text, status, address, phone,
	       COALESCE(payment, 'null'::jsonb)::text, created_at, updated_at
	FROM orders`

type PGRepo struct{ db *postgres.Connection }

func NewPGRepo(db *postgres.Connection) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO orders (owner, items, total, status, address, phone, created_at, updated_at)
		VALUES ($1,$2::text::jsonb,$3::text::numeric,$4,$5,$6,NOW(),NOW())
		RETURNING id, created_at, updated_at
	`, o.Owner, string(items), o.Total.String(), o.Status, o.Address, o.Phone,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, pgSelect+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (r *PGRepo) List(ctx context.Context, q listing.Query) ([]Order, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c, err := postgres.Compile(q, pgColumns)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE `+c.Where, c.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	suffix, args := c.PageArgs(q)
	rows, err := r.db.Query(ctx, pgSelect+` WHERE `+c.Where+` ORDER BY `+c.Order+` `+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	out := make([]Order, 0, q.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

func (r *PGRepo) SetStatus(ctx context.Context, id int64, status string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	prev, err := scanOrder(tx.QueryRow(ctx, pgSelect+` WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if prev.Status == StatusCanceled {
		return nil, ErrCanceled
	}
	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, status); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	return &prev, nil
}

func (r *PGRepo) Pay(ctx context.Context, id int64, owner string, payment map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("failed to encode payment: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET payment = COALESCE(payment, '{}'::jsonb) || $3::text::jsonb,
		    status = $4, updated_at = NOW()
		WHERE id = $1 AND owner = $2 AND status = $5
	`, id, owner, string(raw), StatusPaid, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1 AND owner=$2)`, id, owner).Scan(&exists); err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNotPending
}

func (r *PGRepo) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                     Order
		items, total, payment string
	)
	err := row.Scan(&o.ID, &o.Owner, &items, &total, &o.Status, &o.Address, &o.Phone,
		&payment, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return Order{}, fmt.Errorf("failed to decode items: %w", err)
	}
	if err := json.Unmarshal([]byte(payment), &o.Payment); err != nil {
		return Order{}, fmt.Errorf("failed to decode payment: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return Order{}, fmt.Errorf("failed to decode total: %w", err)
	}
	return o, nil
}
