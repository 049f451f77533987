package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one identity: a user or an anonymous session token.
type Cart struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       *uuid.UUID `json:"userId,omitempty" db:"user_id"`
	SessionToken *string    `json:"-" db:"session_token"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
}

// CartLine is one (cart, variant) quantity entry. Its price is always read live from the variant.
type CartLine struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CartID    uuid.UUID `json:"cartId" db:"cart_id"`
	VariantID uuid.UUID `json:"variantId" db:"variant_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Variant   Variant   `json:"variant"`
}

// Subtotal is quantity times the current variant final price.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Variant.FinalPrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartLineView is the rendered form of a cart line.
type CartLineView struct {
	ID          uuid.UUID       `json:"id"`
	VariantID   uuid.UUID       `json:"variantId"`
	SKU         string          `json:"sku"`
	ProductName string          `json:"productName"`
	ProductSlug string          `json:"productSlug"`
	Color       *string         `json:"color,omitempty"`
	Size        *string         `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	InStock     int             `json:"inStock"`
}

// CartView is the cart as shown to its owner.
type CartView struct {
	CartID    *uuid.UUID      `json:"cartId,omitempty"`
	Lines     []CartLineView  `json:"lines"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
}

// NewCartView renders lines into a view with live totals.
func NewCartView(cart *Cart, lines []CartLine) *CartView {
	view := &CartView{
		Lines: make([]CartLineView, 0, len(lines)),
		Total: decimal.Zero,
	}
	if cart != nil {
		id := cart.ID
		view.CartID = &id
	}
	for _, l := range lines {
		subtotal := l.Subtotal()
		view.Lines = append(view.Lines, CartLineView{
			ID:          l.ID,
			VariantID:   l.VariantID,
			SKU:         l.Variant.SKU,
			ProductName: l.Variant.ProductName,
			ProductSlug: l.Variant.ProductSlug,
			Color:       l.Variant.Color,
			Size:        l.Variant.Size,
			Quantity:    l.Quantity,
			UnitPrice:   l.Variant.FinalPrice(),
			Subtotal:    subtotal,
			InStock:     l.Variant.Stock,
		})
		view.ItemCount += l.Quantity
		view.Total = view.Total.Add(subtotal)
	}
	return view
}

// AddLineRequest is the payload for adding a variant to the cart. Quantity defaults to 1.
type AddLineRequest struct {
	VariantID uuid.UUID `json:"variantId" validate:"required"`
	Quantity  *int      `json:"quantity,omitempty"`
}

// Qty returns the requested quantity, defaulting to 1.
func (r AddLineRequest) Qty() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

// UpdateLineRequest is the payload for setting a cart line quantity.
type UpdateLineRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}
