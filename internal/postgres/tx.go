package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/orders"
)

const (
	uniqueViolation          = "23505"
	idempotencyKeyConstraint = "orders_user_idempotency_key"
)

type tx struct {
	q queryer
}

var _ orders.Tx = (*tx)(nil)

func (t *tx) LockProducts(ctx context.Context, ids []int64) error {
	rows, err := t.q.QueryContext(ctx, `
		SELECT id
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	// Locks are taken as rows are read.
	for rows.Next() {
	}
	return rows.Err()
}

func (t *tx) ProductForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	var (
		p     domain.Product
		image sql.NullString
	)
	err := t.q.QueryRowContext(ctx, `
		SELECT id, name, price, image, stock, is_active, sizes, colors
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&p.ID, &p.Name, &p.Price, &image, &p.Stock, &p.IsActive, pq.Array(&p.Sizes), pq.Array(&p.Colors))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Image = image.String
	return &p, nil
}

func (t *tx) AdjustStock(ctx context.Context, id int64, delta int) (bool, error) {
	result, err := t.q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0
	`, id, delta)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (t *tx) CouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var (
		c       domain.Coupon
		maxUses sql.NullInt64
	)
	err := t.q.QueryRowContext(ctx, `
		SELECT id, code, discount, is_active, valid_from, valid_until, max_uses, used_count
		FROM coupons
		WHERE code = $1
		FOR UPDATE
	`, code).Scan(&c.ID, &c.Code, &c.Discount, &c.IsActive, &c.ValidFrom, &c.ValidUntil, &maxUses, &c.UsedCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		c.MaxUses = &n
	}
	return &c, nil
}

func (t *tx) IncrementCouponUsage(ctx context.Context, id int64) (bool, error) {
	result, err := t.q.ExecContext(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)
	`, id)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (t *tx) NextOrderSequence(ctx context.Context, year int) (int64, error) {
	var next int64
	err := t.q.QueryRowContext(ctx, `
		INSERT INTO order_number_sequences (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = order_number_sequences.last_value + 1
		RETURNING last_value
	`, year).Scan(&next)
	return next, err
}

func (t *tx) OrderForUpdate(ctx context.Context, ref domain.OrderRef) (*domain.Order, error) {
	return findOrder(ctx, t.q, ref, true)
}

func (t *tx) OrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error) {
	return loadOrder(ctx, t.q, "o.user_id = $1 AND o.idempotency_key = $2", []any{userID, key}, false)
}

func (t *tx) InsertOrder(ctx context.Context, order *domain.Order) error {
	var estimated sql.NullTime
	if !order.EstimatedDelivery.IsZero() {
		estimated = sql.NullTime{Time: order.EstimatedDelivery, Valid: true}
	}

	err := t.q.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_number, user_id, status, payment_status, delivery_status,
			subtotal, shipping, tax, discount, total_amount,
			shipping_address, billing_address, payment_method, coupon_code, tracking_number,
			estimated_delivery, notes, idempotency_key, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`,
		order.OrderNumber, order.UserID, order.Status, order.PaymentStatus, order.DeliveryStatus,
		order.Subtotal, order.Shipping, order.Tax, order.Discount, order.TotalAmount,
		nullString(order.ShippingAddress), nullString(order.BillingAddress),
		nullString(order.PaymentMethod), nullString(order.CouponCode), nullString(order.TrackingNumber),
		estimated, nullString(order.Notes), nullString(order.IdempotencyKey), order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == idempotencyKeyConstraint {
			return orders.ErrDuplicateRequest
		}
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := t.q.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price, selected_size, selected_color)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, order.ID, item.ProductID, item.Quantity, item.Price,
			nullString(item.SelectedSize), nullString(item.SelectedColor),
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert item for product %d: %w", item.ProductID, err)
		}
	}

	if p := order.Payment; p != nil {
		err := t.q.QueryRowContext(ctx, `
			INSERT INTO payments (order_id, user_id, amount, payment_method, status, stripe_session_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, order.ID, p.UserID, p.Amount, p.PaymentMethod, p.Status, nullString(p.ExternalSessionID)).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
	}

	return nil
}

func (t *tx) UpdateOrderStatus(ctx context.Context, order *domain.Order) error {
	result, err := t.q.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, notes = $3, updated_at = $4
		WHERE id = $1
	`, order.ID, order.Status, nullString(order.Notes), order.UpdatedAt)
	if err != nil {
		return err
	}
	ok, err := affectedOne(result)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("order %d not updated", order.ID)
	}
	return nil
}

func (t *tx) EnqueueEvent(ctx context.Context, event domain.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = t.q.ExecContext(ctx, `
		INSERT INTO outbox (event_id, event_type, key, payload)
		VALUES ($1, $2, $3, $4)
	`, event.EventID, string(event.Type), domain.FormatOrderID(event.OrderID), string(payload))
	return err
}

func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
