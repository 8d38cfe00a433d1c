package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

const summaryDateLayout = "2006-01-02"

// Money values render as JSON numbers with exactly two decimals.

type ProductView struct {
	SKU   string      `json:"sku"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
	Image *string     `json:"image"`
}

type ItemDetail struct {
	ID            string      `json:"id"`
	Product       ProductView `json:"product"`
	Quantity      int         `json:"quantity"`
	SelectedSize  *string     `json:"selectedSize"`
	SelectedColor *string     `json:"selectedColor"`
	Price         json.Number `json:"price"`
	Subtotal      json.Number `json:"subtotal"`
}

type OrderDetail struct {
	ID                string                `json:"id"`
	OrderNumber       string                `json:"orderNumber"`
	UserID            string                `json:"userId"`
	Status            domain.OrderStatus    `json:"status"`
	Items             []ItemDetail          `json:"items"`
	Subtotal          json.Number           `json:"subtotal"`
	Shipping          json.Number           `json:"shipping"`
	Tax               json.Number           `json:"tax"`
	Discount          json.Number           `json:"discount"`
	Total             json.Number           `json:"total"`
	ShippingAddress   *domain.Address       `json:"shippingAddress"`
	BillingAddress    *domain.Address       `json:"billingAddress"`
	PaymentMethod     *string               `json:"paymentMethod"`
	CouponCode        *string               `json:"couponCode"`
	PaymentStatus     domain.PaymentStatus  `json:"paymentStatus"`
	DeliveryStatus    domain.DeliveryStatus `json:"deliveryStatus"`
	TrackingNumber    *string               `json:"trackingNumber"`
	EstimatedDelivery *time.Time            `json:"estimatedDelivery"`
	Notes             *string               `json:"notes"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

type ItemProductSummary struct {
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

type ItemSummary struct {
	ID            string             `json:"id"`
	Product       ItemProductSummary `json:"product"`
	Quantity      int                `json:"quantity"`
	Price         json.Number        `json:"price"`
	SelectedSize  *string            `json:"selectedSize"`
	SelectedColor *string            `json:"selectedColor"`
}

type OrderSummary struct {
	ID             string                `json:"id"`
	OrderNumber    string                `json:"orderNumber"`
	Date           string                `json:"date"`
	Status         domain.OrderStatus    `json:"status"`
	Total          json.Number           `json:"total"`
	Subtotal       json.Number           `json:"subtotal"`
	Shipping       json.Number           `json:"shipping"`
	Tax            json.Number           `json:"tax"`
	PaymentStatus  domain.PaymentStatus  `json:"paymentStatus"`
	DeliveryStatus domain.DeliveryStatus `json:"deliveryStatus"`
	Items          []ItemSummary         `json:"items"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	Pagination Pagination     `json:"pagination"`
}

// PresentDetail builds the client view of an order. It returns nil for a nil order.
func PresentDetail(o *domain.Order) *OrderDetail {
	if o == nil {
		return nil
	}

	items := make([]ItemDetail, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemDetail{
			ID: domain.FormatOrderItemID(it.ID),
			Product: ProductView{
				SKU:   domain.FormatSKU(it.ProductID),
				Name:  it.Product.Name,
				Price: money(it.Price),
				Image: optional(it.Product.Image),
			},
			Quantity:      it.Quantity,
			SelectedSize:  optional(it.SelectedSize),
			SelectedColor: optional(it.SelectedColor),
			Price:         money(it.Price),
			Subtotal:      money(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))),
		})
	}

	var estimated *time.Time
	if !o.EstimatedDelivery.IsZero() {
		t := o.EstimatedDelivery.UTC()
		estimated = &t
	}

	return &OrderDetail{
		ID:                domain.FormatOrderID(o.ID),
		OrderNumber:       o.OrderNumber,
		UserID:            domain.FormatUserID(o.UserID),
		Status:            o.Status,
		Items:             items,
		Subtotal:          money(o.Subtotal),
		Shipping:          money(o.Shipping),
		Tax:               money(o.Tax),
		Discount:          money(o.Discount),
		Total:             money(o.TotalAmount),
		ShippingAddress:   decodeAddress(o.ShippingAddress),
		BillingAddress:    decodeAddress(o.BillingAddress),
		PaymentMethod:     optional(o.PaymentMethod),
		CouponCode:        optional(o.CouponCode),
		PaymentStatus:     o.PaymentStatus,
		DeliveryStatus:    o.DeliveryStatus,
		TrackingNumber:    optional(o.TrackingNumber),
		EstimatedDelivery: estimated,
		Notes:             optional(o.Notes),
		CreatedAt:         o.CreatedAt.UTC(),
		UpdatedAt:         o.UpdatedAt.UTC(),
	}
}

func PresentSummary(o *domain.Order) OrderSummary {
	items := make([]ItemSummary, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemSummary{
			ID: domain.FormatOrderItemID(it.ID),
			Product: ItemProductSummary{
				Name:  it.Product.Name,
				Image: optional(it.Product.Image),
			},
			Quantity:      it.Quantity,
			Price:         money(it.Price),
			SelectedSize:  optional(it.SelectedSize),
			SelectedColor: optional(it.SelectedColor),
		})
	}

	return OrderSummary{
		ID:             domain.FormatOrderID(o.ID),
		OrderNumber:    o.OrderNumber,
		Date:           o.CreatedAt.UTC().Format(summaryDateLayout),
		Status:         o.Status,
		Total:          money(o.TotalAmount),
		Subtotal:       money(o.Subtotal),
		Shipping:       money(o.Shipping),
		Tax:            money(o.Tax),
		PaymentStatus:  o.PaymentStatus,
		DeliveryStatus: o.DeliveryStatus,
		Items:          items,
	}
}

func NewPagination(page, limit, total int) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + limit - 1) / limit
	}
	return p
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// decodeAddress tolerates rows written before addresses were validated:
// anything that is not a JSON object renders as null.
func decodeAddress(raw string) *domain.Address {
	if raw == "" {
		return nil
	}
	var a *domain.Address
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil
	}
	return a
}
