package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/deofis/cursos-online-apirest/internal/domain"
)

type SkuRepository struct {
	pool *pgxpool.Pool
}

func NewSkuRepository(pool *pgxpool.Pool) *SkuRepository {
	return &SkuRepository{pool: pool}
}

func (r *SkuRepository) Get(ctx context.Context, id int64) (*domain.Sku, error) {
	db := q(ctx, r.pool)

	s := &domain.Sku{}
	var price string
	var promoPrice *string
	var promo domain.Promotion
	var promoFrom, promoUntil *time.Time
	err := db.QueryRow(ctx,
		`SELECT s.id, s.name, s.product_id, s.price::text, s.available,
			s.promo_price::text, s.promo_from, s.promo_until,
			s.default_of_product_id, COALESCE(p.sellable_without_variants, true)
		 FROM skus s
		 LEFT JOIN products p ON p.id = s.default_of_product_id
		 WHERE s.id = $1`, id).Scan(
		&s.ID, &s.Name, &s.ProductID, &price, &s.Available,
		&promoPrice, &promoFrom, &promoUntil,
		&s.DefaultOfProductID, &s.SellableWithoutVariants,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sku %d: %w", id, domain.ErrSkuNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select sku: %w", err)
	}

	if s.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("sku price: %w", err)
	}
	if promoPrice != nil && promoFrom != nil && promoUntil != nil {
		if promo.OfferPrice, err = decimal.NewFromString(*promoPrice); err != nil {
			return nil, fmt.Errorf("sku promo price: %w", err)
		}
		promo.ValidFrom = *promoFrom
		promo.ValidUntil = *promoUntil
		s.Promotion = &promo
	}
	return s, nil
}

// ReserveStock atomically decrements availability, refusing to go negative.
// The conditional update is the per-SKU serialization point: concurrent
// orders racing for the last units resolve to exactly one winner.
func (r *SkuRepository) ReserveStock(ctx context.Context, skuID int64, qty int) error {
	db := q(ctx, r.pool)

	tag, err := db.Exec(ctx,
		`UPDATE skus SET available = available - $2 WHERE id = $1 AND available >= $2`,
		skuID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if exists, err := r.exists(ctx, skuID); err != nil {
			return err
		} else if !exists {
			return domain.ErrSkuNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

// ReleaseStock returns units to availability. Called on cancellation.
func (r *SkuRepository) ReleaseStock(ctx context.Context, skuID int64, qty int) error {
	db := q(ctx, r.pool)

	tag, err := db.Exec(ctx,
		`UPDATE skus SET available = available + $2 WHERE id = $1`, skuID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSkuNotFound
	}
	return nil
}

func (r *SkuRepository) exists(ctx context.Context, skuID int64) (bool, error) {
	db := q(ctx, r.pool)

	var found bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM skus WHERE id = $1)`, skuID).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("sku exists: %w", err)
	}
	return found, nil
}
