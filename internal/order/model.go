package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusShipped  = "shipped"
	StatusCanceled = "canceled"
)

// Order is identified by a sequential number assigned by the store.
type Order struct {
	ID        int64           `json:"orderId"`
	Owner     string          `json:"owner"`
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	Address   string          `json:"address"`
	Phone     string          `json:"phone"`
	Payment   map[string]any  `json:"payment,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Item is a line of an order, priced when the order was placed.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal is Price times Quantity.
func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}
