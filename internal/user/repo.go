package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/storage/postgres"
)

var ErrNotFound = fmt.Errorf("user %w", apperr.ErrNotFound)

// Filters are the filter tokens accepted by the user listing.
var Filters = listing.Filters{
	"Admin": listing.Eq("role", RoleAdmin.String()),
}

type Repository interface {
	Upsert(ctx context.Context, uid string, profile Profile) error
	GetByUID(ctx context.Context, uid string) (*User, error)
	SetRole(ctx context.Context, uid string, role Role) error
	List(ctx context.Context, q listing.Query) ([]User, int64, error)
}

var pgColumns = postgres.Columns{
	Fields: map[string]string{"role": "role", "uid": "uid"},
	Search: "search",
	Newest: "created_at DESC, uid DESC",
}

type PGRepo struct{ db *postgres.Connection }

func NewPGRepo(db *postgres.Connection) *PGRepo { return &PGRepo{db: db} }

// Upsert merges profile into the stored profile, creating the row on first sight.
func (r *PGRepo) Upsert(ctx context.Context, uid string, profile Profile) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO users (uid, profile, created_at, updated_at)
		VALUES ($1, $2::text::jsonb, NOW(), NOW())
		ON CONFLICT (uid) DO UPDATE
		SET profile = users.profile || EXCLUDED.profile,
		    updated_at = NOW()
	`, uid, string(raw))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByUID(ctx context.Context, uid string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	u, err := scanUser(r.db.QueryRow(ctx, `
		SELECT uid, role, profile::text, created_at, updated_at
		FROM users WHERE uid=$1
	`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *PGRepo) SetRole(ctx context.Context, uid string, role Role) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE users SET role = $2, updated_at = NOW() WHERE uid = $1
	`, uid, role.String())
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) List(ctx context.Context, q listing.Query) ([]User, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c, err := postgres.Compile(q, pgColumns)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users WHERE `+c.Where, c.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	suffix, args := c.PageArgs(q)
	rows, err := r.db.Query(ctx, `
		SELECT uid, role, profile::text, created_at, updated_at
		FROM users WHERE `+c.Where+` ORDER BY `+c.Order+` `+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := make([]User, 0, q.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u       User
		role    string
		profile string
	)
	if err := row.Scan(&u.UID, &role, &profile, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	u.Role = roleFromStore(role)
	if err := json.Unmarshal([]byte(profile), &u.Profile); err != nil {
		return User{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	return u, nil
}
