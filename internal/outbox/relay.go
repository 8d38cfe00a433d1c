// Package outbox relays events committed alongside orders to the message
// broker. Delivery is at least once: a record is marked sent only after the
// broker acknowledged it, so a crash in between republishes it.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Record struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at"`
}

type Store interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(ctx context.Context, key, eventType string, payload []byte) error
}

type Relay struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	batchSize int
	published metric.Int64Counter
	logger    *slog.Logger
}

func NewRelay(store Store, publisher Publisher, interval time.Duration, batchSize int, logger *slog.Logger) (*Relay, error) {
	published, err := otel.Meter("outbox").Int64Counter("outbox.published",
		metric.WithDescription("Outbox records delivered to the broker."))
	if err != nil {
		return nil, fmt.Errorf("init outbox metrics: %w", err)
	}

	return &Relay{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		published: published,
		logger:    logger,
	}, nil
}

// Run flushes on every tick until ctx is cancelled. Flush errors are logged
// and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("outbox flush failed", "error", err)
			}
		}
	}
}

// Flush publishes one batch of pending records in id order and reports how
// many were delivered. It stops at the first failure so that later events
// for the same order are never sent ahead of earlier ones.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	records, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending: %w", err)
	}

	sent := 0
	for _, rec := range records {
		if err := r.publisher.Publish(ctx, rec.Key, rec.EventType, rec.Payload); err != nil {
			return sent, fmt.Errorf("publish %s %s: %w", rec.EventType, rec.EventID, err)
		}
		if err := r.store.MarkSent(ctx, rec.ID); err != nil {
			return sent, fmt.Errorf("mark %s sent: %w", rec.EventID, err)
		}
		sent++
		r.published.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", rec.EventType)))
	}

	if sent > 0 {
		r.logger.Info("outbox flushed", "count", sent)
	}
	return sent, nil
}
