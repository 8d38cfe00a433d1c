// Package coupon decides whether a coupon code discounts an order.
//
// Invalid codes never fail a checkout: they yield a zero discount and a
// Reason that callers may log.
package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

type Reason string

const (
	ReasonApplied   Reason = "applied"
	ReasonNoCode    Reason = "no_code"
	ReasonNotFound  Reason = "not_found"
	ReasonInactive  Reason = "inactive"
	ReasonNotYet    Reason = "not_yet_valid"
	ReasonExpired   Reason = "expired"
	ReasonExhausted Reason = "exhausted"
)

// Store is the slice of the order transaction the validator needs.
type Store interface {
	// CouponByCode returns the coupon locked for update, or nil when absent.
	CouponByCode(ctx context.Context, code string) (*domain.Coupon, error)
	// IncrementCouponUsage bumps used_count unless that would pass max_uses.
	// It reports false when the cap was already reached.
	IncrementCouponUsage(ctx context.Context, id int64) (bool, error)
}

type Redemption struct {
	Code     string
	Discount decimal.Decimal
	Reason   Reason
}

func (r Redemption) Applied() bool {
	return r.Reason == ReasonApplied
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Apply(ctx context.Context, s Store, code string, now time.Time) (Redemption, error) {
	r := Redemption{Code: code, Discount: decimal.Zero}
	if code == "" {
		r.Reason = ReasonNoCode
		return r, nil
	}

	c, err := s.CouponByCode(ctx, code)
	if err != nil {
		return r, fmt.Errorf("load coupon %q: %w", code, err)
	}

	r.Reason = check(c, now)
	if r.Reason != ReasonApplied {
		return r, nil
	}

	ok, err := s.IncrementCouponUsage(ctx, c.ID)
	if err != nil {
		return r, fmt.Errorf("increment coupon usage %q: %w", code, err)
	}
	if !ok {
		r.Reason = ReasonExhausted
		return r, nil
	}

	r.Discount = c.Discount
	return r, nil
}

func check(c *domain.Coupon, now time.Time) Reason {
	switch {
	case c == nil:
		return ReasonNotFound
	case !c.IsActive:
		return ReasonInactive
	case now.Before(c.ValidFrom):
		return ReasonNotYet
	case now.After(c.ValidUntil):
		return ReasonExpired
	case c.Exhausted():
		return ReasonExhausted
	}
	return ReasonApplied
}
