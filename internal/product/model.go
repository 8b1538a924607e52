package product

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
)

type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Subtext     string          `json:"subtext"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
	Image       string          `json:"image"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// UnitPrice is the price charged per unit: price minus discount, never
// below zero.
func (p *Product) UnitPrice() decimal.Decimal {
	up := p.Price.Sub(p.Discount)
	if up.IsNegative() {
		return decimal.Zero
	}
	return up
}

// Validate checks the invariants every stored product satisfies.
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock must be >= 0", apperr.ErrInvalidInput)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must be >= 0", apperr.ErrInvalidInput)
	case p.Discount.IsNegative():
		return fmt.Errorf("%w: discount must be >= 0", apperr.ErrInvalidInput)
	}
	return nil
}

// Fields carries the values supplied by a create or edit form. Nil fields
// were not supplied.
type Fields struct {
	Name        *string
	Category    *string
	Subtext     *string
	Description *string
	Image       *string
	Stock       *int
	Price       *decimal.Decimal
	Discount    *decimal.Decimal
}

// Apply copies every supplied field onto p.
func (f Fields) Apply(p *Product) {
	if f.Name != nil {
		p.Name = strings.TrimSpace(*f.Name)
	}
	if f.Category != nil {
		p.Category = strings.TrimSpace(*f.Category)
	}
	if f.Subtext != nil {
		p.Subtext = *f.Subtext
	}
	if f.Description != nil {
		p.Description = *f.Description
	}
	if f.Image != nil {
		p.Image = *f.Image
	}
	if f.Stock != nil {
		p.Stock = *f.Stock
	}
	if f.Price != nil {
		p.Price = *f.Price
	}
	if f.Discount != nil {
		p.Discount = *f.Discount
	}
}

// trimmed returns f with the name and category trimmed, as Apply stores them.
func (f Fields) trimmed() Fields {
	if f.Name != nil {
		v := strings.TrimSpace(*f.Name)
		f.Name = &v
	}
	if f.Category != nil {
		v := strings.TrimSpace(*f.Category)
		f.Category = &v
	}
	return f
}

// ProductForm documents the multipart fields of create and edit.
// swagger:model ProductForm
type ProductForm struct {
	Name        string `json:"name"        example:"Ajwa Dates 1kg"`
	Category    string `json:"category"    example:"dates"`
	Subtext     string `json:"subtext"     example:"Premium Madinah dates"`
	Stock       int    `json:"stock"       example:"25"`
	Description string `json:"description" example:"Soft, dark and sweet."`
	Price       string `json:"price"       example:"24.90"`
	Discount    string `json:"discount"    example:"2.00"`
}
