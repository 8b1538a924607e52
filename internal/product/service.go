package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/listing"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new product. Name, price and image are required.
func (s *Service) Create(ctx context.Context, f Fields) (*Product, error) {
	if f.Name == nil || f.Price == nil {
		return nil, fmt.Errorf("%w: name and price are required", apperr.ErrInvalidInput)
	}
	if f.Image == nil || *f.Image == "" {
		return nil, fmt.Errorf("%w: image is required", apperr.ErrInvalidInput)
	}

	p := &Product{}
	f.sanitize().Apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update writes the supplied fields of product id. Stock is only written
// when supplied, so concurrent order reservations are never overwritten.
// When the image is replaced, the previous reference is returned so the
// caller can remove it.
func (s *Service) Update(ctx context.Context, id string, f Fields) (*Product, string, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	f = f.sanitize().trimmed()
	candidate := *current
	f.Apply(&candidate)
	if err := candidate.Validate(); err != nil {
		return nil, "", err
	}
	p, err := s.repo.Update(ctx, id, f)
	if err != nil {
		return nil, "", err
	}
	previous := ""
	if p.Image != current.Image {
		previous = current.Image
	}
	return p, previous, nil
}

// Delete removes product id and returns what was stored.
func (s *Service) Delete(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// ByCategory returns every product of category, newest first.
func (s *Service) ByCategory(ctx context.Context, category string) ([]Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", apperr.ErrInvalidInput)
	}
	return s.repo.ListByCategory(ctx, category)
}

// List returns one page of the catalog and the total matching count.
func (s *Service) List(ctx context.Context, p listing.Params) ([]Product, int64, error) {
	q, err := listing.Build(p, Filters)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, q)
}

// AdjustStock moves stock by delta without ever going negative.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) error {
	return s.repo.AdjustStock(ctx, id, delta)
}
