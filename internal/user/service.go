package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/listing"
)

// TokenIssuer mints an access token bound to an external id.
type TokenIssuer interface {
	Issue(uid string) (string, error)
}

type Service struct {
	repo   Repository
	tokens TokenIssuer
}

func NewService(repo Repository, tokens TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Upsert stores the identity and its profile fields, then mints a fresh
// token. Repeating the call converges to the same stored state; every call
// returns a new token.
func (s *Service) Upsert(ctx context.Context, uid string, profile Profile) (string, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return "", fmt.Errorf("%w: uid is required", apperr.ErrInvalidInput)
	}
	clean, err := profile.Clean()
	if err != nil {
		return "", err
	}
	if err := s.repo.Upsert(ctx, uid, clean); err != nil {
		return "", err
	}
	token, err := s.tokens.Issue(uid)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return token, nil
}

// UpdateProfile merges profile into the caller's stored profile.
func (s *Service) UpdateProfile(ctx context.Context, uid string, profile Profile) error {
	clean, err := profile.Clean()
	if err != nil {
		return err
	}
	return s.repo.Upsert(ctx, uid, clean)
}

func (s *Service) Get(ctx context.Context, uid string) (*User, error) {
	return s.repo.GetByUID(ctx, uid)
}

// List returns one page of identities and the total matching count.
func (s *Service) List(ctx context.Context, p listing.Params) ([]User, int64, error) {
	q, err := listing.Build(p, Filters)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, q)
}

// SetRole grants or revokes admin on an existing identity.
func (s *Service) SetRole(ctx context.Context, uid string, role Role) error {
	if strings.TrimSpace(uid) == "" {
		return fmt.Errorf("%w: uid is required", apperr.ErrInvalidInput)
	}
	return s.repo.SetRole(ctx, uid, role)
}
