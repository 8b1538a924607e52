package order

// CreateOrderItem payload of an order line.
// swagger:model CreateOrderItem
type CreateOrderItem struct {
	ProductID string `json:"productId" example:"665f1c2ab4d3e1a9c0f4b2d1"`
	Quantity  int    `json:"quantity"  example:"2"`
}

// CreateOrderRequest payload of order creation. The owner is the caller.
// swagger:model CreateOrderRequest
type CreateOrderRequest struct {
	Items   []CreateOrderItem `json:"items"`
	Address string            `json:"address" example:"12 Market St, Dhaka"`
	Phone   string            `json:"phone"   example:"+8801700000000"`
}

// StatusRequest payload of an admin status change.
// swagger:model StatusRequest
type StatusRequest struct {
	ID     int64  `json:"id"     example:"11"`
	Status string `json:"status" example:"shipped"`
}

// PaymentRequest payload of a payment confirmation. Fields are merged into
// the order's payment record.
// swagger:model PaymentRequest
type PaymentRequest struct {
	ID      int64          `json:"id"      example:"11"`
	Payment map[string]any `json:"payment"`
}
