package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/email"
)

// NotificationHandler mails the customer when an order is created or
// cancelled.
type NotificationHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

// Handle is a messaging.Handler. Malformed and unknown events are logged and
// skipped so they do not block the partition; failures talking to the email
// service are returned and the message is redelivered.
func (h *NotificationHandler) Handle(ctx context.Context, eventType string, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("skipping malformed event", "error", err, "event_type", eventType)
		return nil
	}
	if eventType == "" {
		eventType = string(event.Type)
	}

	var template string
	switch domain.EventType(eventType) {
	case domain.EventOrderCreated:
		template = email.TemplateOrderConfirmation
	case domain.EventOrderCancelled:
		template = email.TemplateOrderCancellation
	default:
		h.logger.Info("ignoring event", "event_type", eventType, "event_id", event.EventID)
		return nil
	}

	h.logger.Info("processing order event",
		"event_type", eventType,
		"event_id", event.EventID,
		"order_id", event.OrderID,
		"order_number", event.OrderNumber,
		"user_id", event.UserID,
	)

	req := email.SendRequest{
		To:       recipient(event.UserID),
		Template: template,
		Data:     orderData(event),
	}
	if err := h.sendEmail(ctx, req); err != nil {
		h.logger.Error("failed to send email", "error", err, "order_number", event.OrderNumber, "template", template)
		return fmt.Errorf("send %s email: %w", template, err)
	}

	h.logger.Info("notification sent", "order_number", event.OrderNumber, "template", template)
	return nil
}

// recipient derives a mailbox from the user id; the event carries no address.
func recipient(userID int64) string {
	return fmt.Sprintf("user-%d@example.com", userID)
}

func orderData(event domain.OrderEvent) email.OrderData {
	items := make([]email.Item, 0, len(event.Items))
	for _, it := range event.Items {
		items = append(items, email.Item{SKU: it.SKU, Name: it.Name, Quantity: it.Quantity})
	}
	return email.OrderData{
		OrderNumber: event.OrderNumber,
		Total:       event.Total.StringFixed(2),
		Items:       items,
		Reason:      event.Reason,
	}
}

func (h *NotificationHandler) sendEmail(ctx context.Context, body email.SendRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
