package inventory

import (
	"context"
	"fmt"
	"slices"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

// Store is the slice of the order transaction the ledger works against.
type Store interface {
	// LockProducts takes row locks on the given products, in the given order.
	LockProducts(ctx context.Context, ids []int64) error
	// ProductForUpdate returns the product row locked for update, or nil.
	ProductForUpdate(ctx context.Context, id int64) (*domain.Product, error)
	// AdjustStock adds delta to the product's stock unless the result would
	// drop below zero. It reports whether the row was updated.
	AdjustStock(ctx context.Context, id int64, delta int) (bool, error)
}

type Request struct {
	ProductID int64
	SKU       string
	Quantity  int
	Size      string
	Color     string
}

type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Lock locks every distinct product in ascending id order so that
// concurrent transactions touching overlapping products cannot deadlock.
func (l *Ledger) Lock(ctx context.Context, s Store, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	if err := s.LockProducts(ctx, sorted); err != nil {
		return fmt.Errorf("lock products: %w", err)
	}
	return nil
}

// Reserve validates the request against the product and decrements stock.
// It returns the product as it was before the decrement.
func (l *Ledger) Reserve(ctx context.Context, s Store, req Request) (*domain.Product, error) {
	p, err := s.ProductForUpdate(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", req.ProductID, err)
	}
	if p == nil {
		return nil, domain.NewError(domain.KindProductNotFound, req.SKU, "Product not found: %s", req.SKU)
	}
	if !p.IsActive {
		return nil, domain.NewError(domain.KindProductUnavailable, req.SKU, "Product is not available: %s", req.SKU)
	}
	if p.Stock < req.Quantity {
		return nil, outOfStock(req.SKU)
	}
	if !p.AllowsSize(req.Size) {
		return nil, domain.NewError(domain.KindInvalidSize, req.SKU, "Invalid size selected for product: %s", req.SKU)
	}
	if !p.AllowsColor(req.Color) {
		return nil, domain.NewError(domain.KindInvalidColor, req.SKU, "Invalid color selected for product: %s", req.SKU)
	}

	ok, err := s.AdjustStock(ctx, req.ProductID, -req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("reserve product %d: %w", req.ProductID, err)
	}
	if !ok {
		return nil, outOfStock(req.SKU)
	}

	return p, nil
}

// Release returns quantity units of a product to stock.
func (l *Ledger) Release(ctx context.Context, s Store, productID int64, quantity int) error {
	ok, err := s.AdjustStock(ctx, productID, quantity)
	if err != nil {
		return fmt.Errorf("release product %d: %w", productID, err)
	}
	if !ok {
		return fmt.Errorf("release product %d: product row missing", productID)
	}
	return nil
}

func outOfStock(sku string) error {
	return domain.NewError(domain.KindOutOfStock, sku, "Insufficient stock for product: %s", sku)
}
