package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/logger"
	"github.com/MikeMC777/annoor-shop/internal/storage/mongodb"
)

const (
	maxItems     = 50
	maxStatusLen = 32
)

type Service struct {
	repo    Repository
	catalog Catalog
	log     *logger.Logger
}

func NewService(repo Repository, catalog Catalog, log *logger.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, log: log}
}

// Create prices the requested items from the catalog, reserves their stock
// and stores a pending order for owner.
func (s *Service) Create(ctx context.Context, owner string, req CreateOrderRequest) (*Order, error) {
	lines, err := normalizeItems(req.Items)
	if err != nil {
		return nil, err
	}

	o := &Order{
		Owner:   owner,
		Status:  StatusPending,
		Address: strings.TrimSpace(req.Address),
		Phone:   strings.TrimSpace(req.Phone),
		Items:   make([]Item, 0, len(lines)),
		Total:   decimal.Zero,
	}
	for _, l := range lines {
		p, err := s.catalog.Get(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		it := Item{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Quantity:  l.Quantity,
			Price:     p.UnitPrice(),
		}
		o.Items = append(o.Items, it)
		o.Total = o.Total.Add(it.Subtotal())
	}

	if err := reserve(ctx, s.catalog, s.log, o.Items); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		release(ctx, s.catalog, s.log, o.Items)
		return nil, err
	}
	return o, nil
}

// normalizeItems validates the request lines and merges repeated products
// in first-seen order.
func normalizeItems(in []CreateOrderItem) ([]CreateOrderItem, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: order has no items", apperr.ErrInvalidInput)
	}
	if len(in) > maxItems {
		return nil, fmt.Errorf("%w: at most %d items per order", apperr.ErrInvalidInput, maxItems)
	}

	out := make([]CreateOrderItem, 0, len(in))
	index := make(map[string]int, len(in))
	for _, it := range in {
		id := strings.TrimSpace(it.ProductID)
		if id == "" {
			return nil, fmt.Errorf("%w: productId is required", apperr.ErrInvalidInput)
		}
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be >= 1", apperr.ErrInvalidInput)
		}
		if i, ok := index[id]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[id] = len(out)
		out = append(out, CreateOrderItem{ProductID: id, Quantity: it.Quantity})
	}
	return out, nil
}

// Get returns any order.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// GetOwned returns order id only if owner placed it.
func (s *Service) GetOwned(ctx context.Context, owner string, id int64) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Owner != owner {
		return nil, ErrNotFound
	}
	return o, nil
}

// List returns one page of every order.
func (s *Service) List(ctx context.Context, p listing.Params) ([]Order, int64, error) {
	q, err := listing.Build(p, Filters)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, q)
}

// ListOwned returns one page of owner's orders.
func (s *Service) ListOwned(ctx context.Context, owner string, p listing.Params) ([]Order, int64, error) {
	q, err := listing.Build(p, Filters)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, q.Scope(listing.Eq("owner", owner)))
}

// SetStatus sets a free-form status. Canceling returns the reserved stock
// exactly once; a canceled order accepts no further status.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || len(status) > maxStatusLen {
		return fmt.Errorf("%w: status must be 1-%d characters", apperr.ErrInvalidInput, maxStatusLen)
	}

	prev, err := s.repo.SetStatus(ctx, id, status)
	if errors.Is(err, ErrCanceled) && status == StatusCanceled {
		return nil
	}
	if err != nil {
		return err
	}
	if status == StatusCanceled {
		release(ctx, s.catalog, s.log, prev.Items)
	}
	return nil
}

// Pay records payment details on owner's pending order and marks it paid.
func (s *Service) Pay(ctx context.Context, owner string, id int64, payment map[string]any) error {
	if path, bad := mongodb.InvalidKey(payment); bad {
		return fmt.Errorf("%w: invalid payment field %q", apperr.ErrInvalidInput, path)
	}
	if payment == nil {
		payment = map[string]any{}
	}
	return s.repo.Pay(ctx, id, owner, payment)
}

// Delete removes an order. Stock is not returned; cancel first for that.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
