package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/deofis/cursos-online-apirest/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	db := q(ctx, r.pool)

	err := db.QueryRow(ctx,
		`INSERT INTO orders
			(customer_email, customer_name, ship_street, ship_city, ship_region,
			 ship_zip, ship_phone, payment_method, status, total, created_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING number`,
		o.Customer.Email,
		o.Customer.Name,
		o.Shipping.Street,
		o.Shipping.City,
		o.Shipping.Region,
		o.Shipping.Zip,
		o.Shipping.Phone,
		string(o.Method),
		string(o.Status),
		o.Total.String(),
		o.CreatedAt,
	).Scan(&o.Number)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if len(o.Items) > 0 {
		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(
				`INSERT INTO order_items (order_number, sku_id, sku_name, quantity, unit_price, subtotal)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				o.Number, it.SkuID, it.SkuName, it.Quantity, it.UnitPrice.String(), it.Subtotal.String(),
			)
		}
		br := db.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, number int64) (*domain.Order, error) {
	return r.get(ctx, number, false)
}

// GetForUpdate locks the order row until the surrounding transaction ends,
// serializing concurrent completions of the same order.
func (r *OrderRepository) GetForUpdate(ctx context.Context, number int64) (*domain.Order, error) {
	return r.get(ctx, number, true)
}

func (r *OrderRepository) get(ctx context.Context, number int64, forUpdate bool) (*domain.Order, error) {
	db := q(ctx, r.pool)

	query := `SELECT number, customer_email, customer_name, ship_street, ship_city,
			ship_region, ship_zip, ship_phone, payment_method, status, total::text,
			created_at, shipped_at, received_at
		FROM orders WHERE number = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	o := &domain.Order{}
	var total string
	err := db.QueryRow(ctx, query, number).Scan(
		&o.Number, &o.Customer.Email, &o.Customer.Name,
		&o.Shipping.Street, &o.Shipping.City, &o.Shipping.Region, &o.Shipping.Zip, &o.Shipping.Phone,
		&o.Method, &o.Status, &total, &o.CreatedAt, &o.ShippedAt, &o.ReceivedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", number, domain.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("order total: %w", err)
	}

	if o.Items, err = r.loadItems(ctx, number); err != nil {
		return nil, err
	}
	if o.Payment, err = r.loadPayment(ctx, number); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, number int64) ([]domain.LineItem, error) {
	db := q(ctx, r.pool)

	rows, err := db.Query(ctx,
		`SELECT sku_id, sku_name, quantity, unit_price::text, subtotal::text
		 FROM order_items WHERE order_number = $1 ORDER BY id`, number)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		var unit, sub string
		if err := rows.Scan(&it.SkuID, &it.SkuName, &it.Quantity, &unit, &sub); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(unit); err != nil {
			return nil, err
		}
		if it.Subtotal, err = decimal.NewFromString(sub); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *OrderRepository) loadPayment(ctx context.Context, number int64) (*domain.Payment, error) {
	db := q(ctx, r.pool)

	p := &domain.Payment{}
	var gross, net, fee, payerID, payerEmail, payerName *string
	err := db.QueryRow(ctx,
		`SELECT provider, provider_ref, status, approve_url,
			amount_gross::text, amount_net::text, amount_fee::text,
			payer_id, payer_email, payer_name, created_at, paid_at
		 FROM payments WHERE order_number = $1`, number).Scan(
		&p.Provider, &p.ProviderRef, &p.Status, &p.ApproveURL,
		&gross, &net, &fee, &payerID, &payerEmail, &payerName,
		&p.CreatedAt, &p.PaidAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select payment: %w", err)
	}

	if gross != nil {
		amount := &domain.PaymentAmount{}
		if amount.Gross, err = decimal.NewFromString(*gross); err != nil {
			return nil, err
		}
		if net != nil {
			if amount.Net, err = decimal.NewFromString(*net); err != nil {
				return nil, err
			}
		}
		if fee != nil {
			if amount.Fee, err = decimal.NewFromString(*fee); err != nil {
				return nil, err
			}
		}
		p.Amount = amount
	}
	if payerID != nil || payerEmail != nil || payerName != nil {
		p.Payer = &domain.Payer{}
		if payerID != nil {
			p.Payer.ID = *payerID
		}
		if payerEmail != nil {
			p.Payer.Email = *payerEmail
		}
		if payerName != nil {
			p.Payer.FullName = *payerName
		}
	}
	return p, nil
}

// Update persists the order's mutable fields (status, timestamps) and the
// embedded payment. Items and total never change after creation and are not
// written again.
func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	db := q(ctx, r.pool)

	tag, err := db.Exec(ctx,
		`UPDATE orders SET status = $2, shipped_at = $3, received_at = $4 WHERE number = $1`,
		o.Number, string(o.Status), o.ShippedAt, o.ReceivedAt)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", o.Number, domain.ErrOrderNotFound)
	}

	if o.Payment == nil {
		return nil
	}
	return r.savePayment(ctx, o.Number, o.Payment)
}

func (r *OrderRepository) savePayment(ctx context.Context, number int64, p *domain.Payment) error {
	db := q(ctx, r.pool)

	var gross, net, fee *string
	if p.Amount != nil {
		g, n, f := p.Amount.Gross.String(), p.Amount.Net.String(), p.Amount.Fee.String()
		gross, net, fee = &g, &n, &f
	}
	var payerID, payerEmail, payerName *string
	if p.Payer != nil {
		payerID, payerEmail, payerName = &p.Payer.ID, &p.Payer.Email, &p.Payer.FullName
	}

	_, err := db.Exec(ctx,
		`INSERT INTO payments
			(order_number, provider, provider_ref, status, approve_url,
			 amount_gross, amount_net, amount_fee, payer_id, payer_email, payer_name,
			 created_at, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (order_number) DO UPDATE SET
			provider = EXCLUDED.provider,
			provider_ref = EXCLUDED.provider_ref,
			status = EXCLUDED.status,
			approve_url = EXCLUDED.approve_url,
			amount_gross = EXCLUDED.amount_gross,
			amount_net = EXCLUDED.amount_net,
			amount_fee = EXCLUDED.amount_fee,
			payer_id = EXCLUDED.payer_id,
			payer_email = EXCLUDED.payer_email,
			payer_name = EXCLUDED.payer_name,
			created_at = EXCLUDED.created_at,
			paid_at = EXCLUDED.paid_at`,
		number, string(p.Provider), p.ProviderRef, string(p.Status), p.ApproveURL,
		gross, net, fee, payerID, payerEmail, payerName, p.CreatedAt, p.PaidAt)
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	db := q(ctx, r.pool)

	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(ctx, `SELECT number FROM orders ORDER BY number DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var numbers []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*domain.Order, 0, len(numbers))
	for _, n := range numbers {
		o, err := r.Get(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}
