package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderCancelled EventType = "order.cancelled"
)

type EventItem struct {
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderEvent is written to the outbox in the same transaction as the order
// change it describes.
type OrderEvent struct {
	EventID     string          `json:"event_id"`
	Type        EventType       `json:"type"`
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Total       decimal.Decimal `json:"total"`
	Items       []EventItem     `json:"items"`
	Reason      string          `json:"reason,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

func NewOrderEvent(eventID string, typ EventType, order *Order, reason string, at time.Time) OrderEvent {
	items := make([]EventItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, EventItem{SKU: FormatSKU(it.ProductID), Name: it.Product.Name, Quantity: it.Quantity})
	}
	return OrderEvent{
		EventID:     eventID,
		Type:        typ,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Total:       order.TotalAmount,
		Items:       items,
		Reason:      reason,
		Timestamp:   at,
	}
}
