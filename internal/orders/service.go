package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront-orders/internal/coupon"
	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/inventory"
	"github.com/joao-fontenele/storefront-orders/internal/ordernum"
	"github.com/joao-fontenele/storefront-orders/internal/pricing"
)

var tracer = otel.Tracer("orders")

const (
	DefaultDeliveryWindow = 7 * 24 * time.Hour

	paymentStatusPending = "pending"
)

type ItemRequest struct {
	SKU           string `json:"productSku"`
	Quantity      int    `json:"quantity"`
	SelectedSize  string `json:"selectedSize"`
	SelectedColor string `json:"selectedColor"`
}

type CreateOrderRequest struct {
	Items           []ItemRequest   `json:"items"`
	ShippingAddress *domain.Address `json:"shippingAddress"`
	BillingAddress  *domain.Address `json:"billingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	CouponCode      string          `json:"couponCode"`
	StripeSessionID string          `json:"stripeSessionId"`
	IdempotencyKey  string          `json:"-"`
}

// Service owns the order lifecycle: pending orders are created with their
// stock reserved and may be cancelled until they ship.
type Service struct {
	store          Store
	ledger         *inventory.Ledger
	coupons        *coupon.Validator
	pricing        *pricing.Engine
	numbers        *ordernum.Generator
	deliveryWindow time.Duration
	now            func() time.Time
	newEventID     func() string
	metrics        *metrics
	logger         *slog.Logger
}

type Option func(*Service)

func WithPricing(engine *pricing.Engine) Option {
	return func(s *Service) { s.pricing = engine }
}

func WithDeliveryWindow(d time.Duration) Option {
	return func(s *Service) { s.deliveryWindow = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithEventIDs(next func() string) Option {
	return func(s *Service) { s.newEventID = next }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) (*Service, error) {
	m, err := newMetrics(otel.Meter("orders"))
	if err != nil {
		return nil, fmt.Errorf("init order metrics: %w", err)
	}

	s := &Service{
		store:          store,
		ledger:         inventory.NewLedger(),
		coupons:        coupon.NewValidator(),
		pricing:        pricing.Default(),
		numbers:        ordernum.NewGenerator(),
		deliveryWindow: DefaultDeliveryWindow,
		now:            func() time.Time { return time.Now().UTC() },
		newEventID:     func() string { return uuid.NewString() },
		metrics:        m,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Create(ctx context.Context, userID int64, req CreateOrderRequest) (*OrderDetail, error) {
	ctx, span := tracer.Start(ctx, "orders.Create", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("order.item_count", len(req.Items)),
	))
	defer span.End()

	order, replayed, err := s.create(ctx, userID, req)
	if errors.Is(err, ErrDuplicateRequest) {
		// A concurrent request with the same key committed first; replay it.
		order, replayed, err = s.create(ctx, userID, req)
	}
	if err != nil {
		s.fail(ctx, span, "create", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("order.number", order.OrderNumber), attribute.Bool("order.replayed", replayed))
	if replayed {
		s.logger.Info("order replayed", "order_id", order.ID, "order_number", order.OrderNumber, "user_id", userID)
	} else {
		s.metrics.created.Add(ctx, 1)
		s.logger.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber, "user_id", userID, "total", order.TotalAmount.StringFixed(2))
	}
	return PresentDetail(order), nil
}

func (s *Service) create(ctx context.Context, userID int64, req CreateOrderRequest) (*domain.Order, bool, error) {
	if len(req.Items) == 0 {
		return nil, false, domain.NewError(domain.KindValidation, "", "Order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, false, domain.NewError(domain.KindValidation, item.SKU, "Quantity must be at least 1")
		}
	}

	shippingAddress, err := encodeAddress(req.ShippingAddress)
	if err != nil {
		return nil, false, err
	}
	billingAddress, err := encodeAddress(req.BillingAddress)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	var (
		order    *domain.Order
		replayed bool
	)

	err = s.store.WithTx(ctx, func(tx Tx) error {
		if req.IdempotencyKey != "" {
			existing, err := tx.OrderByIdempotencyKey(ctx, userID, req.IdempotencyKey)
			if err != nil {
				return fmt.Errorf("lookup idempotency key: %w", err)
			}
			if existing != nil {
				order, replayed = existing, true
				return nil
			}
		}

		if err := s.ledger.Lock(ctx, tx, requestedProductIDs(req.Items)); err != nil {
			return err
		}

		items := make([]domain.OrderItem, 0, len(req.Items))
		lines := make([]pricing.Line, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := domain.ParseSKU(item.SKU)
			if err != nil {
				return err
			}

			product, err := s.ledger.Reserve(ctx, tx, inventory.Request{
				ProductID: productID,
				SKU:       item.SKU,
				Quantity:  item.Quantity,
				Size:      item.SelectedSize,
				Color:     item.SelectedColor,
			})
			if err != nil {
				return err
			}

			items = append(items, domain.OrderItem{
				ProductID:     productID,
				Product:       domain.ItemProduct{Name: product.Name, Image: product.Image},
				Quantity:      item.Quantity,
				Price:         product.Price,
				SelectedSize:  item.SelectedSize,
				SelectedColor: item.SelectedColor,
			})
			lines = append(lines, pricing.Line{UnitPrice: product.Price, Quantity: item.Quantity})
		}

		redemption, err := s.coupons.Apply(ctx, tx, req.CouponCode, now)
		if err != nil {
			return err
		}
		if req.CouponCode != "" && !redemption.Applied() {
			s.metrics.couponSkipped.Add(ctx, 1, reasonAttr(redemption.Reason))
			s.logger.Info("coupon not applied", "coupon_code", req.CouponCode, "reason", redemption.Reason, "user_id", userID)
		}

		quote := s.pricing.Quote(lines, redemption.Discount)

		number, err := s.numbers.Next(ctx, tx, now)
		if err != nil {
			return err
		}

		order = &domain.Order{
			OrderNumber:       number,
			UserID:            userID,
			Status:            domain.OrderStatusPending,
			PaymentStatus:     domain.PaymentStatusUnpaid,
			DeliveryStatus:    domain.DeliveryStatusProcessing,
			Subtotal:          quote.Subtotal,
			Shipping:          quote.Shipping,
			Tax:               quote.Tax,
			Discount:          quote.Discount,
			TotalAmount:       quote.Total,
			ShippingAddress:   shippingAddress,
			BillingAddress:    billingAddress,
			PaymentMethod:     req.PaymentMethod,
			CouponCode:        req.CouponCode,
			EstimatedDelivery: now.Add(s.deliveryWindow),
			IdempotencyKey:    req.IdempotencyKey,
			CreatedAt:         now,
			UpdatedAt:         now,
			Items:             items,
		}
		if req.PaymentMethod != "" {
			order.Payment = &domain.PaymentRecord{
				UserID:            userID,
				Amount:            quote.Total,
				PaymentMethod:     req.PaymentMethod,
				Status:            paymentStatusPending,
				ExternalSessionID: req.StripeSessionID,
			}
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		event := domain.NewOrderEvent(s.newEventID(), domain.EventOrderCreated, order, "", now)
		if err := tx.EnqueueEvent(ctx, event); err != nil {
			return fmt.Errorf("enqueue order created event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, replayed, nil
}

func (s *Service) Cancel(ctx context.Context, userID int64, rawRef, reason string) (*OrderDetail, error) {
	ctx, span := tracer.Start(ctx, "orders.Cancel", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("order.ref", rawRef),
	))
	defer span.End()

	ref, err := domain.ParseOrderRef(rawRef)
	if err != nil {
		s.fail(ctx, span, "cancel", err)
		return nil, err
	}

	now := s.now()
	var order *domain.Order

	err = s.store.WithTx(ctx, func(tx Tx) error {
		o, err := tx.OrderForUpdate(ctx, ref)
		if err != nil {
			return fmt.Errorf("load order %s: %w", ref, err)
		}
		if err := authorize(o, userID, ref); err != nil {
			return err
		}
		if o.Status == domain.OrderStatusCancelled {
			return domain.NewError(domain.KindAlreadyCancelled, ref.String(), "Order is already cancelled")
		}
		if o.DeliveryStatus.Dispatched() {
			return domain.NewError(domain.KindCannotCancel, ref.String(), "Order cannot be cancelled. It has already been shipped.")
		}

		ids := make([]int64, 0, len(o.Items))
		for _, item := range o.Items {
			ids = append(ids, item.ProductID)
		}
		if err := s.ledger.Lock(ctx, tx, ids); err != nil {
			return err
		}
		for _, item := range o.Items {
			if err := s.ledger.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		o.Status = domain.OrderStatusCancelled
		o.Notes = cancellationNote(reason)
		o.UpdatedAt = now
		if err := tx.UpdateOrderStatus(ctx, o); err != nil {
			return fmt.Errorf("update order %d: %w", o.ID, err)
		}

		event := domain.NewOrderEvent(s.newEventID(), domain.EventOrderCancelled, o, reason, now)
		if err := tx.EnqueueEvent(ctx, event); err != nil {
			return fmt.Errorf("enqueue order cancelled event: %w", err)
		}

		order = o
		return nil
	})
	if err != nil {
		s.fail(ctx, span, "cancel", err)
		return nil, err
	}

	s.metrics.cancelled.Add(ctx, 1)
	s.logger.Info("order cancelled", "order_id", order.ID, "order_number", order.OrderNumber, "user_id", userID)
	return PresentDetail(order), nil
}

func (s *Service) Get(ctx context.Context, userID int64, rawRef string) (*OrderDetail, error) {
	ctx, span := tracer.Start(ctx, "orders.Get", trace.WithAttributes(attribute.String("order.ref", rawRef)))
	defer span.End()

	ref, err := domain.ParseOrderRef(rawRef)
	if err != nil {
		return nil, err
	}

	o, err := s.store.FindOrder(ctx, ref)
	if err != nil {
		err = fmt.Errorf("find order %s: %w", ref, err)
		s.fail(ctx, span, "get", err)
		return nil, err
	}
	if err := authorize(o, userID, ref); err != nil {
		return nil, err
	}
	return PresentDetail(o), nil
}

func (s *Service) List(ctx context.Context, userID int64, params ListParams) (*OrderList, error) {
	q := params.Normalize(userID)

	ctx, span := tracer.Start(ctx, "orders.List", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("page", q.Page),
		attribute.Int("limit", q.Limit),
	))
	defer span.End()

	found, total, err := s.store.ListOrders(ctx, q)
	if err != nil {
		err = fmt.Errorf("list orders: %w", err)
		s.fail(ctx, span, "list", err)
		return nil, err
	}

	summaries := make([]OrderSummary, 0, len(found))
	for i := range found {
		summaries = append(summaries, PresentSummary(&found[i]))
	}
	return &OrderList{
		Orders:     summaries,
		Pagination: NewPagination(q.Page, q.Limit, total),
	}, nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if kind, ok := domain.KindOf(err); ok {
		s.metrics.rejected.Add(ctx, 1, kindAttr(op, kind))
		s.logger.Info("order request rejected", "op", op, "kind", kind, "error", err)
		return
	}
	s.logger.Error("order request failed", "op", op, "error", err)
}

func authorize(o *domain.Order, userID int64, ref domain.OrderRef) error {
	if o == nil {
		return domain.NewError(domain.KindOrderNotFound, ref.String(), "Order not found")
	}
	if o.UserID != userID {
		return domain.NewError(domain.KindUnauthorized, ref.String(), "Unauthorized")
	}
	return nil
}

// requestedProductIDs returns the ids of well-formed SKUs only; malformed
// ones are reported in input order by the reservation loop.
func requestedProductIDs(items []ItemRequest) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if id, err := domain.ParseSKU(item.SKU); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func cancellationNote(reason string) string {
	if reason == "" {
		return "Order cancelled"
	}
	return "Cancelled: " + reason
}

func encodeAddress(a *domain.Address) (string, error) {
	if a == nil {
		return "", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode address: %w", err)
	}
	return string(data), nil
}
