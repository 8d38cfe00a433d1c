package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/email"
	"github.com/shopspring/decimal"
)

func newEvent(t *testing.T, typ domain.EventType, reason string) []byte {
	t.Helper()
	event := domain.OrderEvent{
		EventID:     "evt-1",
		Type:        typ,
		OrderID:     1,
		OrderNumber: "ORD-2025-000001",
		UserID:      7,
		Total:       decimal.RequireFromString("27.65"),
		Items:       []domain.EventItem{{SKU: "PROD-1", Name: "Tee", Quantity: 2}},
		Reason:      reason,
		Timestamp:   time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return data
}

func newTestHandler(url string, client *http.Client) *NotificationHandler {
	return NewNotificationHandler(url, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNotificationHandler_Handle(t *testing.T) {
	t.Run("sends confirmation for created orders", func(t *testing.T) {
		var got email.SendRequest
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/send" {
				t.Errorf("expected /send, got %s", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer emailServer.Close()

		handler := newTestHandler(emailServer.URL, emailServer.Client())
		err := handler.Handle(context.Background(), string(domain.EventOrderCreated), newEvent(t, domain.EventOrderCreated, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got.Template != email.TemplateOrderConfirmation {
			t.Errorf("expected confirmation template, got %s", got.Template)
		}
		if got.To != "user-7@example.com" {
			t.Errorf("unexpected recipient: %s", got.To)
		}
		if got.Data.Total != "27.65" || got.Data.OrderNumber != "ORD-2025-000001" {
			t.Errorf("unexpected data: %+v", got.Data)
		}
		if len(got.Data.Items) != 1 || got.Data.Items[0].Quantity != 2 {
			t.Errorf("unexpected items: %+v", got.Data.Items)
		}
	})

	t.Run("sends cancellation with reason", func(t *testing.T) {
		var got email.SendRequest
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusOK)
		}))
		defer emailServer.Close()

		handler := newTestHandler(emailServer.URL, emailServer.Client())
		err := handler.Handle(context.Background(), string(domain.EventOrderCancelled), newEvent(t, domain.EventOrderCancelled, "too slow"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got.Template != email.TemplateOrderCancellation {
			t.Errorf("expected cancellation template, got %s", got.Template)
		}
		if got.Data.Reason != "too slow" {
			t.Errorf("expected reason, got %q", got.Data.Reason)
		}
	})

	t.Run("falls back to the payload type without a header", func(t *testing.T) {
		var got email.SendRequest
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusOK)
		}))
		defer emailServer.Close()

		handler := newTestHandler(emailServer.URL, emailServer.Client())
		if err := handler.Handle(context.Background(), "", newEvent(t, domain.EventOrderCancelled, "")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Template != email.TemplateOrderCancellation {
			t.Errorf("expected cancellation template, got %s", got.Template)
		}
	})

	t.Run("skips unknown and malformed events", func(t *testing.T) {
		calls := 0
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusOK)
		}))
		defer emailServer.Close()

		handler := newTestHandler(emailServer.URL, emailServer.Client())
		if err := handler.Handle(context.Background(), "order.shipped", newEvent(t, "order.shipped", "")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := handler.Handle(context.Background(), string(domain.EventOrderCreated), []byte(`not json`)); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if calls != 0 {
			t.Errorf("expected no emails, got %d", calls)
		}
	})

	t.Run("returns error when email service fails", func(t *testing.T) {
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer emailServer.Close()

		handler := newTestHandler(emailServer.URL, emailServer.Client())
		err := handler.Handle(context.Background(), string(domain.EventOrderCreated), newEvent(t, domain.EventOrderCreated, ""))
		if err == nil {
			t.Fatal("expected error when email service fails")
		}
	})

	t.Run("returns error when email service unreachable", func(t *testing.T) {
		handler := newTestHandler("http://localhost:99999", &http.Client{})
		err := handler.Handle(context.Background(), string(domain.EventOrderCreated), newEvent(t, domain.EventOrderCreated, ""))
		if err == nil {
			t.Fatal("expected error when email service unreachable")
		}
	})
}
