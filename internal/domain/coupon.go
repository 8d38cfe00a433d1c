package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Coupon struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code"`
	Discount   decimal.Decimal `json:"discount"`
	IsActive   bool            `json:"is_active"`
	ValidFrom  time.Time       `json:"valid_from"`
	ValidUntil time.Time       `json:"valid_until"`
	MaxUses    *int            `json:"max_uses,omitempty"`
	UsedCount  int             `json:"used_count"`
}

func (c Coupon) Exhausted() bool {
	return c.MaxUses != nil && c.UsedCount >= *c.MaxUses
}

// InWindow reports whether now falls inside [ValidFrom, ValidUntil].
func (c Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.ValidFrom) && !now.After(c.ValidUntil)
}
