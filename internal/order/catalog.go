package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/logger"
	"github.com/MikeMC777/annoor-shop/internal/product"
)

// Catalog is what orders need from the product catalog.
type Catalog interface {
	Get(ctx context.Context, id string) (*product.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) error
}

// reserve takes stock for every item, giving back what it already took if
// one of them fails.
func reserve(ctx context.Context, cat Catalog, log *logger.Logger, items []Item) error {
	for i, it := range items {
		err := cat.AdjustStock(ctx, it.ProductID, -it.Quantity)
		if err == nil {
			continue
		}
		release(ctx, cat, log, items[:i])
		if errors.Is(err, product.ErrInsufficientStock) {
			return fmt.Errorf("%w: insufficient stock for %s", apperr.ErrConflict, it.Name)
		}
		return err
	}
	return nil
}

// release returns stock for items. Products deleted in the meantime are
// skipped; other failures are logged since the caller has already committed.
func release(ctx context.Context, cat Catalog, log *logger.Logger, items []Item) {
	for _, it := range items {
		err := cat.AdjustStock(context.WithoutCancel(ctx), it.ProductID, it.Quantity)
		if err != nil && !errors.Is(err, product.ErrNotFound) {
			log.Error("failed to release stock",
				slog.String("productId", it.ProductID),
				slog.Int("quantity", it.Quantity),
				slog.String("error", err.Error()),
			)
		}
	}
}
