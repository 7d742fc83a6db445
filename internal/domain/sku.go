package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion is an offer price valid inside a time window.
type Promotion struct {
	OfferPrice decimal.Decimal `json:"offer_price"`
	ValidFrom  time.Time       `json:"valid_from"`
	ValidUntil time.Time       `json:"valid_until"`
}

func (p *Promotion) ActiveAt(t time.Time) bool {
	return !t.Before(p.ValidFrom) && t.Before(p.ValidUntil)
}

// Sku is a purchasable variant of a product with its own price and stock
// counter. Available is owned by the inventory allocator and never drops
// below zero.
type Sku struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	ProductID int64           `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Available int             `json:"available"`
	Promotion *Promotion      `json:"promotion,omitempty"`

	// DefaultOfProductID is set when this SKU is the placeholder SKU of its
	// product. SellableWithoutVariants mirrors the owning product's flag and
	// is only meaningful for placeholder SKUs.
	DefaultOfProductID      *int64 `json:"default_of_product_id,omitempty"`
	SellableWithoutVariants bool   `json:"sellable_without_variants"`
}

// Sellable reports whether the SKU may appear on an order. A placeholder SKU
// of a product that is sold through its variants must never be sold directly.
func (s *Sku) Sellable() bool {
	if s.DefaultOfProductID == nil {
		return true
	}
	return s.SellableWithoutVariants
}

// SalePriceAt returns the promotional price when a promotion is active at t,
// otherwise the list price.
func (s *Sku) SalePriceAt(t time.Time) decimal.Decimal {
	if s.Promotion != nil && s.Promotion.ActiveAt(t) {
		return s.Promotion.OfferPrice
	}
	return s.Price
}
