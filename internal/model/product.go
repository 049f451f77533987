package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Product represents a catalogue entry. Prices are per unit; stock lives on variants.
type Product struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Slug            string          `json:"slug" db:"slug"`
	Category        string          `json:"category" db:"category"`
	Brand           *string         `json:"brand,omitempty" db:"brand"`
	Description     string          `json:"description,omitempty" db:"description"`
	SellPrice       decimal.Decimal `json:"sellPrice" db:"sell_price"`
	PurchasePrice   decimal.Decimal `json:"-" db:"purchase_price"`
	DiscountPercent int             `json:"discountPercent" db:"discount_percent"`
	Featured        bool            `json:"featured" db:"featured"`
	NewRelease      bool            `json:"newRelease" db:"new_release"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	Variants        []Variant       `json:"variants,omitempty"`
}

// ApplyDiscount reduces price by percent and rounds to cents.
func ApplyDiscount(price decimal.Decimal, percent int) decimal.Decimal {
	if percent <= 0 {
		return price.Round(2)
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(percent))).Div(hundred)
	return price.Mul(factor).Round(2)
}

// DiscountedPrice is the sell price after the product discount.
func (p Product) DiscountedPrice() decimal.Decimal {
	return ApplyDiscount(p.SellPrice, p.DiscountPercent)
}

// Profit is sell price minus purchase price.
func (p Product) Profit() decimal.Decimal {
	return p.SellPrice.Sub(p.PurchasePrice).Round(2)
}

// ProfitAfterDiscount is the discounted price minus purchase price.
func (p Product) ProfitAfterDiscount() decimal.Decimal {
	return p.DiscountedPrice().Sub(p.PurchasePrice).Round(2)
}

// TotalStock sums stock over all loaded variants.
func (p Product) TotalStock() int {
	total := 0
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// MinVariantPrice returns the lowest variant final price, or the discounted price without variants.
func (p Product) MinVariantPrice() decimal.Decimal {
	if len(p.Variants) == 0 {
		return p.DiscountedPrice()
	}
	lowest := p.Variants[0].FinalPrice()
	for _, v := range p.Variants[1:] {
		lowest = decimal.Min(lowest, v.FinalPrice())
	}
	return lowest
}

// MaxVariantPrice returns the highest variant final price, or the discounted price without variants.
func (p Product) MaxVariantPrice() decimal.Decimal {
	if len(p.Variants) == 0 {
		return p.DiscountedPrice()
	}
	highest := p.Variants[0].FinalPrice()
	for _, v := range p.Variants[1:] {
		highest = decimal.Max(highest, v.FinalPrice())
	}
	return highest
}

// Variant is a purchasable color/size configuration of a product.
// The product columns are loaded alongside so the final price can be derived.
type Variant struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	ProductID       uuid.UUID       `json:"productId" db:"product_id"`
	Color           *string         `json:"color,omitempty" db:"color"`
	Size            *string         `json:"size,omitempty" db:"size"`
	SKU             string          `json:"sku" db:"sku"`
	Stock           int             `json:"stock" db:"stock"`
	PriceAdjustment decimal.Decimal `json:"priceAdjustment" db:"price_adjustment"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`

	ProductName     string          `json:"productName" db:"product_name"`
	ProductSlug     string          `json:"productSlug" db:"product_slug"`
	BasePrice       decimal.Decimal `json:"basePrice" db:"sell_price"`
	DiscountPercent int             `json:"discountPercent" db:"discount_percent"`
}

// FinalPrice is (product base price + adjustment) with the product discount applied.
func (v Variant) FinalPrice() decimal.Decimal {
	return ApplyDiscount(v.BasePrice.Add(v.PriceAdjustment), v.DiscountPercent)
}

// Label renders "Product (color/size)" for messages.
func (v Variant) Label() string {
	color, size := deref(v.Color), deref(v.Size)
	switch {
	case color != "" && size != "":
		return fmt.Sprintf("%s (%s/%s)", v.ProductName, color, size)
	case color != "":
		return fmt.Sprintf("%s (%s)", v.ProductName, color)
	case size != "":
		return fmt.Sprintf("%s (%s)", v.ProductName, size)
	}
	return v.ProductName
}

// CreateProductRequest is the staff payload for adding a product.
type CreateProductRequest struct {
	Name            string          `json:"name" validate:"required,max=200"`
	Category        string          `json:"category" validate:"required,max=100"`
	Brand           *string         `json:"brand,omitempty" validate:"omitempty,max=100"`
	Description     string          `json:"description"`
	SellPrice       decimal.Decimal `json:"sellPrice"`
	PurchasePrice   decimal.Decimal `json:"purchasePrice"`
	DiscountPercent int             `json:"discountPercent" validate:"gte=0,lte=100"`
	Featured        bool            `json:"featured"`
	NewRelease      bool            `json:"newRelease"`
}

// CreateVariantRequest is the staff payload for adding a variant to a product.
type CreateVariantRequest struct {
	Color           *string         `json:"color,omitempty" validate:"omitempty,max=50"`
	Size            *string         `json:"size,omitempty" validate:"omitempty,max=50"`
	Stock           int             `json:"stock" validate:"gte=0"`
	PriceAdjustment decimal.Decimal `json:"priceAdjustment"`
}

// UpdateVariantRequest is the staff payload for restocking or repricing a variant.
type UpdateVariantRequest struct {
	Stock           *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	PriceAdjustment *decimal.Decimal `json:"priceAdjustment,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ProductFilter narrows a catalogue listing.
type ProductFilter struct {
	Category   string
	Featured   bool
	NewRelease bool
	Limit      int
	Offset     int
}
