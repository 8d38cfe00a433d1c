package orders

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront-orders/internal/coupon"
	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

type metrics struct {
	created       metric.Int64Counter
	cancelled     metric.Int64Counter
	rejected      metric.Int64Counter
	couponSkipped metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders committed."))
	if err != nil {
		return nil, err
	}
	cancelled, err := meter.Int64Counter("orders.cancelled",
		metric.WithDescription("Orders moved to cancelled."))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("orders.rejected",
		metric.WithDescription("Order operations refused by a business rule."))
	if err != nil {
		return nil, err
	}
	couponSkipped, err := meter.Int64Counter("coupons.skipped",
		metric.WithDescription("Coupon codes supplied at checkout that granted no discount."))
	if err != nil {
		return nil, err
	}

	return &metrics{
		created:       created,
		cancelled:     cancelled,
		rejected:      rejected,
		couponSkipped: couponSkipped,
	}, nil
}

func kindAttr(op string, kind domain.ErrorKind) metric.AddOption {
	return metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("kind", string(kind)),
	)
}

func reasonAttr(reason coupon.Reason) metric.AddOption {
	return metric.WithAttributes(attribute.String("reason", string(reason)))
}
