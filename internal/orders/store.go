package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/joao-fontenele/storefront-orders/internal/coupon"
	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/inventory"
	"github.com/joao-fontenele/storefront-orders/internal/ordernum"
)

// ErrDuplicateRequest is returned by Tx.InsertOrder when another order already
// holds the same idempotency key for the user.
var ErrDuplicateRequest = errors.New("duplicate idempotency key")

// Tx is the unit of work every create and cancel runs in. Nothing it writes is
// visible to other requests until WithTx's callback returns nil.
type Tx interface {
	inventory.Store
	coupon.Store
	ordernum.Store

	// OrderForUpdate loads the order with its items and locks its row.
	// It returns nil when no order matches.
	OrderForUpdate(ctx context.Context, ref domain.OrderRef) (*domain.Order, error)
	OrderByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error)
	// InsertOrder persists the order, its items and payment, filling in ids.
	InsertOrder(ctx context.Context, order *domain.Order) error
	UpdateOrderStatus(ctx context.Context, order *domain.Order) error
	EnqueueEvent(ctx context.Context, event domain.OrderEvent) error
}

type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	FindOrder(ctx context.Context, ref domain.OrderRef) (*domain.Order, error)
	ListOrders(ctx context.Context, q ListQuery) ([]domain.Order, int, error)
}

type SortField string

const (
	SortByCreatedAt   SortField = "createdAt"
	SortByTotalAmount SortField = "totalAmount"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ListQuery struct {
	UserID     int64
	Page       int
	Limit      int
	Status     domain.OrderStatus
	SortBy     SortField
	Descending bool
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ListParams are the raw, optional list inputs as they arrive from a caller.
type ListParams struct {
	Page      int
	Limit     int
	Status    string
	SortBy    string
	SortOrder string
}

// Normalize applies defaults: page 1, limit 20 (capped at 100), newest first.
func (p ListParams) Normalize(userID int64) ListQuery {
	q := ListQuery{
		UserID:     userID,
		Page:       p.Page,
		Limit:      p.Limit,
		Status:     domain.OrderStatus(p.Status),
		SortBy:     SortByCreatedAt,
		Descending: !strings.EqualFold(p.SortOrder, "asc"),
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if SortField(p.SortBy) == SortByTotalAmount {
		q.SortBy = SortByTotalAmount
	}
	return q
}
