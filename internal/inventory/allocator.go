package inventory

import (
	"context"
	"fmt"

	"github.com/deofis/cursos-online-apirest/internal/domain"
)

// ItemRequest is one requested line of a draft order.
type ItemRequest struct {
	SkuID    int64 `json:"sku_id"`
	Quantity int   `json:"quantity"`
}

// SkuStore is the persistence port the allocator writes availability through.
// ReserveStock must be an atomic check-and-decrement: it either applies the
// full decrement or fails with domain.ErrInsufficientStock, never leaving the
// counter negative.
type SkuStore interface {
	Get(ctx context.Context, id int64) (*domain.Sku, error)
	ReserveStock(ctx context.Context, skuID int64, qty int) error
	ReleaseStock(ctx context.Context, skuID int64, qty int) error
}

// Allocator reserves and releases stock units for order line items. It is the
// only writer of per-SKU availability counters.
type Allocator struct {
	skus SkuStore
}

func NewAllocator(skus SkuStore) *Allocator {
	return &Allocator{skus: skus}
}

// Reserve validates every requested line in list order and decrements each
// SKU's availability. The first failing line rejects the whole request; the
// caller's transaction is expected to roll back decrements already applied.
// Returns the fetched SKUs, index-aligned with reqs.
func (a *Allocator) Reserve(ctx context.Context, reqs []ItemRequest) ([]*domain.Sku, error) {
	skus := make([]*domain.Sku, 0, len(reqs))
	for _, req := range reqs {
		sku, err := a.skus.Get(ctx, req.SkuID)
		if err != nil {
			return nil, err
		}

		if !sku.Sellable() {
			return nil, fmt.Errorf("sku %d: %w", sku.ID, domain.ErrUnsellableItem)
		}
		if sku.Available-req.Quantity < 0 {
			return nil, fmt.Errorf("sku %d: %w", sku.ID, domain.ErrInsufficientStock)
		}
		if req.Quantity <= 0 {
			return nil, fmt.Errorf("sku %d: %w", sku.ID, domain.ErrInvalidQuantity)
		}

		// The store re-checks under its own lock; a concurrent order that won
		// the race surfaces here as insufficient stock.
		if err := a.skus.ReserveStock(ctx, sku.ID, req.Quantity); err != nil {
			return nil, fmt.Errorf("sku %d: %w", sku.ID, err)
		}
		sku.Available -= req.Quantity
		skus = append(skus, sku)
	}
	return skus, nil
}

// Release returns reserved units of every line item back to stock. Used when
// an order is cancelled before shipment. Safe to retry line by line.
func (a *Allocator) Release(ctx context.Context, items []domain.LineItem) error {
	for _, it := range items {
		if err := a.skus.ReleaseStock(ctx, it.SkuID, it.Quantity); err != nil {
			return fmt.Errorf("sku %d: %w", it.SkuID, err)
		}
	}
	return nil
}
