// Package postgres implements order, inventory and outbox persistence on
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/orders"
	"github.com/joao-fontenele/storefront-orders/internal/outbox"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var (
	_ orders.Store = (*Store)(nil)
	_ outbox.Store = (*Store)(nil)
)

// WithTx runs fn in a READ COMMITTED transaction. Row locks taken through
// the Tx serialize writers that touch the same products, coupon or year.
func (s *Store) WithTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&tx{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) FindOrder(ctx context.Context, ref domain.OrderRef) (*domain.Order, error) {
	return findOrder(ctx, s.db, ref, false)
}

func (s *Store) ListOrders(ctx context.Context, q orders.ListQuery) ([]domain.Order, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM orders
		WHERE user_id = $1 AND ($2::text = '' OR status = $2)
	`, q.UserID, string(q.Status)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	column := "o.created_at"
	if q.SortBy == orders.SortByTotalAmount {
		column = "o.total_amount"
	}
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		WHERE o.user_id = $1 AND ($2::text = '' OR o.status = $2)
		ORDER BY %s %s, o.id %s
		LIMIT $3 OFFSET $4
	`, orderColumns, column, direction, direction)

	rows, err := s.db.QueryContext(ctx, query, q.UserID, string(q.Status), q.Limit, q.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var found []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		found = append(found, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := attachItems(ctx, s.db, found); err != nil {
		return nil, 0, err
	}
	return found, total, nil
}

func (s *Store) ListStock(ctx context.Context) ([]domain.StockLevel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, stock, is_active
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	levels := []domain.StockLevel{}
	for rows.Next() {
		var (
			id    int64
			level domain.StockLevel
		)
		if err := rows.Scan(&id, &level.Name, &level.Stock, &level.IsActive); err != nil {
			return nil, err
		}
		level.SKU = domain.FormatSKU(id)
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

func (s *Store) StockByProductID(ctx context.Context, id int64) (*domain.StockLevel, error) {
	level := &domain.StockLevel{SKU: domain.FormatSKU(id)}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, stock, is_active
		FROM products
		WHERE id = $1
	`, id).Scan(&level.Name, &level.Stock, &level.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return level, nil
}

func (s *Store) FetchPending(ctx context.Context, limit int) ([]outbox.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, event_type, key, payload, created_at, sent_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []outbox.Record
	for rows.Next() {
		var rec outbox.Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.EventType, &rec.Key, &rec.Payload, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) MarkSent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE outbox SET sent_at = NOW() WHERE id = $1`, id)
	return err
}

const orderColumns = `o.id, o.order_number, o.user_id, o.status, o.payment_status, o.delivery_status,
		o.subtotal, o.shipping, o.tax, o.discount, o.total_amount,
		o.shipping_address, o.billing_address, o.payment_method, o.coupon_code, o.tracking_number,
		o.estimated_delivery, o.notes, o.idempotency_key, o.created_at, o.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o                                 domain.Order
		shipping, billing, method, coupon sql.NullString
		tracking, notes, idempotencyKey   sql.NullString
		estimated                         sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentStatus, &o.DeliveryStatus,
		&o.Subtotal, &o.Shipping, &o.Tax, &o.Discount, &o.TotalAmount,
		&shipping, &billing, &method, &coupon, &tracking,
		&estimated, &notes, &idempotencyKey, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.ShippingAddress = shipping.String
	o.BillingAddress = billing.String
	o.PaymentMethod = method.String
	o.CouponCode = coupon.String
	o.TrackingNumber = tracking.String
	o.Notes = notes.String
	o.IdempotencyKey = idempotencyKey.String
	if estimated.Valid {
		o.EstimatedDelivery = estimated.Time
	}
	return &o, nil
}

// findOrder loads one order with its items and payment. It returns nil when
// nothing matches.
func findOrder(ctx context.Context, q queryer, ref domain.OrderRef, forUpdate bool) (*domain.Order, error) {
	var (
		where string
		arg   any
	)
	if ref.Number != "" {
		where, arg = "o.order_number = $1", ref.Number
	} else {
		where, arg = "o.id = $1", ref.ID
	}
	return loadOrder(ctx, q, where, []any{arg}, forUpdate)
}

func loadOrder(ctx context.Context, q queryer, where string, args []any, forUpdate bool) (*domain.Order, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM orders o WHERE %s", orderColumns, where)
	if forUpdate {
		b.WriteString(" FOR UPDATE")
	}

	o, err := scanOrder(q.QueryRowContext(ctx, b.String(), args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	found := []domain.Order{*o}
	if err := attachItems(ctx, q, found); err != nil {
		return nil, err
	}
	o = &found[0]

	payment, err := loadPayment(ctx, q, o.ID)
	if err != nil {
		return nil, err
	}
	o.Payment = payment
	return o, nil
}

// attachItems loads the items of every order in one query.
func attachItems(ctx context.Context, q queryer, found []domain.Order) error {
	if len(found) == 0 {
		return nil
	}

	ids := make([]int64, len(found))
	index := make(map[int64]int, len(found))
	for i := range found {
		ids[i] = found[i].ID
		index[found[i].ID] = i
		found[i].Items = []domain.OrderItem{}
	}

	rows, err := q.QueryContext(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, p.name, p.image, oi.quantity, oi.price,
		       oi.selected_size, oi.selected_color
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id
	`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			item               domain.OrderItem
			image, size, color sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Product.Name, &image,
			&item.Quantity, &item.Price, &size, &color); err != nil {
			return err
		}
		item.Product.Image = image.String
		item.SelectedSize = size.String
		item.SelectedColor = color.String

		i := index[item.OrderID]
		found[i].Items = append(found[i].Items, item)
	}
	return rows.Err()
}

func loadPayment(ctx context.Context, q queryer, orderID int64) (*domain.PaymentRecord, error) {
	var (
		p       domain.PaymentRecord
		session sql.NullString
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, user_id, amount, payment_method, status, stripe_session_id
		FROM payments
		WHERE order_id = $1
	`, orderID).Scan(&p.ID, &p.UserID, &p.Amount, &p.PaymentMethod, &p.Status, &session)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ExternalSessionID = session.String
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
