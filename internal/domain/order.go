package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

type DeliveryStatus string

const (
	DeliveryStatusProcessing     DeliveryStatus = "processing"
	DeliveryStatusShipped        DeliveryStatus = "shipped"
	DeliveryStatusOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryStatusDelivered      DeliveryStatus = "delivered"
)

// Dispatched reports whether the parcel has left the warehouse.
func (s DeliveryStatus) Dispatched() bool {
	switch s {
	case DeliveryStatusShipped, DeliveryStatusOutForDelivery, DeliveryStatusDelivered:
		return true
	}
	return false
}

type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

// ItemProduct is the part of a product shown next to an order line.
type ItemProduct struct {
	Name  string
	Image string
}

type OrderItem struct {
	ID            int64
	OrderID       int64
	ProductID     int64
	Product       ItemProduct
	Quantity      int
	Price         decimal.Decimal
	SelectedSize  string
	SelectedColor string
}

type PaymentRecord struct {
	ID                int64
	UserID            int64
	Amount            decimal.Decimal
	PaymentMethod     string
	Status            string
	ExternalSessionID string
}

// Order is the persisted aggregate. Address fields hold the serialized JSON
// exactly as stored; an empty string means no address.
type Order struct {
	ID                int64
	OrderNumber       string
	UserID            int64
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	DeliveryStatus    DeliveryStatus
	Subtotal          decimal.Decimal
	Shipping          decimal.Decimal
	Tax               decimal.Decimal
	Discount          decimal.Decimal
	TotalAmount       decimal.Decimal
	ShippingAddress   string
	BillingAddress    string
	PaymentMethod     string
	CouponCode        string
	TrackingNumber    string
	EstimatedDelivery time.Time
	Notes             string
	IdempotencyKey    string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Items             []OrderItem
	Payment           *PaymentRecord
}

var (
	orderIDPattern     = regexp.MustCompile(`^order_(\d+)$`)
	numericIDPattern   = regexp.MustCompile(`^\d+$`)
	orderNumberPattern = regexp.MustCompile(`^ORD-\d{4}-\d{3,}$`)
)

// OrderRef identifies an order either by id or by order number.
type OrderRef struct {
	ID     int64
	Number string
}

func (r OrderRef) String() string {
	if r.Number != "" {
		return r.Number
	}
	return FormatOrderID(r.ID)
}

// ParseOrderRef accepts "order_<id>", "<id>" or an order number.
func ParseOrderRef(s string) (OrderRef, error) {
	if m := orderIDPattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	if numericIDPattern.MatchString(s) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err == nil && id > 0 {
			return OrderRef{ID: id}, nil
		}
	}
	if orderNumberPattern.MatchString(s) {
		return OrderRef{Number: s}, nil
	}
	return OrderRef{}, NewError(KindValidation, s, "Invalid order ID format")
}

func FormatOrderID(id int64) string {
	return fmt.Sprintf("order_%d", id)
}

func FormatOrderItemID(id int64) string {
	return fmt.Sprintf("order_item_%d", id)
}

func FormatUserID(id int64) string {
	return fmt.Sprintf("user_%d", id)
}
