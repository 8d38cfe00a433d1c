// Package pricing computes the monetary breakdown of an order.
package pricing

import "github.com/shopspring/decimal"

var (
	DefaultShipping = decimal.RequireFromString("5.99")
	DefaultTaxRate  = decimal.RequireFromString("0.083")
)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Quote is captured once at order creation and stored as is.
type Quote struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

type Engine struct {
	shipping decimal.Decimal
	taxRate  decimal.Decimal
}

func NewEngine(shipping, taxRate decimal.Decimal) *Engine {
	return &Engine{shipping: shipping, taxRate: taxRate}
}

func Default() *Engine {
	return NewEngine(DefaultShipping, DefaultTaxRate)
}

// Quote rounds every output to cents, half away from zero. The total is not
// floored at zero: a discount larger than the order is the coupon owner's call.
func (e *Engine) Quote(lines []Line, discount decimal.Decimal) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}

	tax := subtotal.Mul(e.taxRate).Round(2)
	total := subtotal.Add(e.shipping).Add(tax).Sub(discount).Round(2)

	return Quote{
		Subtotal: subtotal.Round(2),
		Shipping: e.shipping.Round(2),
		Tax:      tax,
		Discount: discount.Round(2),
		Total:    total,
	}
}
