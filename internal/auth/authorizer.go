package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/user"
)

// IdentityStore looks identities up by external id.
type IdentityStore interface {
	GetByUID(ctx context.Context, uid string) (*user.User, error)
}

// Authorizer decides whether a verified identity holds admin privileges.
type Authorizer struct {
	users IdentityStore
}

func NewAuthorizer(users IdentityStore) *Authorizer {
	return &Authorizer{users: users}
}

// Authorize fails with ErrForbidden when no identity exists for uid or its
// role is not admin. Store failures are returned as they are.
func (a *Authorizer) Authorize(ctx context.Context, uid string) error {
	u, err := a.users.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("%w: unknown identity", apperr.ErrForbidden)
		}
		return fmt.Errorf("failed to look up identity: %w", err)
	}

	switch u.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleNone:
		return fmt.Errorf("%w: admin role required", apperr.ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown role", apperr.ErrForbidden)
	}
}
