// Package product manages the catalog: storage, listing and stock.
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/storage/postgres"
)

var (
	ErrNotFound          = fmt.Errorf("product %w", apperr.ErrNotFound)
	ErrInvalidID         = fmt.Errorf("%w: malformed product id", apperr.ErrInvalidInput)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", apperr.ErrConflict)
)

// Filters are the filter tokens accepted by the admin product listing.
var Filters = listing.Filters{
	"Stock out":  listing.Eq("stock", 0),
	"Discounted": listing.Gt("discount", 0),
}

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	// Update writes only the supplied fields of product id and returns the
	// stored result. Fields left nil, stock included, keep whatever value
	// they hold at write time.
	Update(ctx context.Context, id string, f Fields) (*Product, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, q listing.Query) ([]Product, int64, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	// AdjustStock adds delta to the stock in one atomic step, failing with
	// ErrInsufficientStock instead of going below zero.
	AdjustStock(ctx context.Context, id string, delta int) error
}

var pgColumns = postgres.Columns{
	Fields: map[string]string{"stock": "stock", "discount": "discount", "category": "category"},
	Search: "search",
	Newest: "created_at DESC, id DESC",
}

const pgFields = `id::text, name, category, subtext, stock, description,
	price::text, discount::text, image, created_at, updated_at`

const pgSelect = `SELECT ` + pgFields + ` FROM products`

type PGRepo struct{ db *postgres.Connection }

func NewPGRepo(db *postgres.Connection) *PGRepo { return &PGRepo{db: db} }

func pgID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrInvalidID
	}
	return u, nil
}

func (r *PGRepo) Create(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.ID = uuid.NewString()
	err := r.db.QueryRow(ctx, `
		INSERT INTO products (id, name, category, subtext, stock, description, price, discount, image, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7::text::numeric,$8::text::numeric,$9,NOW(),NOW())
		RETURNING created_at, updated_at
	`, p.ID, p.Name, p.Category, p.Subtext, p.Stock, p.Description,
		p.Price.String(), p.Discount.String(), p.Image,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	uid, err := pgID(id)
	if err != nil {
		return nil, err
	}
	p, err := scanProduct(r.db.QueryRow(ctx, pgSelect+` WHERE id=$1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (r *PGRepo) Update(ctx context.Context, id string, f Fields) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	uid, err := pgID(id)
	if err != nil {
		return nil, err
	}
	set, args := pgSet(uid, f)
	p, err := scanProduct(r.db.QueryRow(ctx,
		`UPDATE products SET `+set+` WHERE id=$1 RETURNING `+pgFields, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &p, nil
}

// pgSet builds the SET clause for the supplied fields. $1 is the id.
func pgSet(id uuid.UUID, f Fields) (string, []any) {
	sets := []string{"updated_at=NOW()"}
	args := []any{id}
	add := func(col, cast string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d%s", col, len(args), cast))
	}
	if f.Name != nil {
		add("name", "", *f.Name)
	}
	if f.Category != nil {
		add("category", "", *f.Category)
	}
	if f.Subtext != nil {
		add("subtext", "", *f.Subtext)
	}
	if f.Description != nil {
		add("description", "", *f.Description)
	}
	if f.Image != nil {
		add("image", "", *f.Image)
	}
	if f.Stock != nil {
		add("stock", "", *f.Stock)
	}
	if f.Price != nil {
		add("price", "::text::numeric", f.Price.String())
	}
	if f.Discount != nil {
		add("discount", "::text::numeric", f.Discount.String())
	}
	return strings.Join(sets, ", "), args
}

func (r *PGRepo) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	uid, err := pgID(id)
	if err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, uid)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepo) List(ctx context.Context, q listing.Query) ([]Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c, err := postgres.Compile(q, pgColumns)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+c.Where, c.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	suffix, args := c.PageArgs(q)
	out, err := r.query(ctx, pgSelect+` WHERE `+c.Where+` ORDER BY `+c.Order+` `+suffix, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PGRepo) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.query(ctx, pgSelect+` WHERE category=$1 ORDER BY `+pgColumns.Newest, category)
}

func (r *PGRepo) AdjustStock(ctx context.Context, id string, delta int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	uid, err := pgID(id)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0
	`, uid, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, uid).Scan(&exists); err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

func (r *PGRepo) query(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p               Product
		price, discount string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Subtext, &p.Stock, &p.Description,
		&price, &discount, &p.Image, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return Product{}, fmt.Errorf("failed to decode price: %w", err)
	}
	if p.Discount, err = decimal.NewFromString(discount); err != nil {
		return Product{}, fmt.Errorf("failed to decode discount: %w", err)
	}
	return p, nil
}
