// Package config reads service settings from the environment. A .env file
// in the working directory, when present, is loaded first and never
// overrides variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const DefaultEventsTopic = "order.events"

type Orders struct {
	Port           string
	PostgresURL    string
	KafkaBrokers   []string
	EventsTopic    string
	Shipping       decimal.Decimal
	TaxRate        decimal.Decimal
	DeliveryWindow time.Duration
	OutboxInterval time.Duration
	OutboxBatch    int
	OTLPEndpoint   string
}

type Gateway struct {
	Port             string
	OrdersServiceURL string
	JWTSecret        string
	RateLimitRPS     float64
	RateLimitBurst   int
	OTLPEndpoint     string
}

type Worker struct {
	KafkaBrokers    []string
	EventsTopic     string
	GroupID         string
	EmailServiceURL string
	OTLPEndpoint    string
}

type Email struct {
	Port         string
	OTLPEndpoint string
}

type Migrate struct {
	PostgresURL    string
	MigrationsPath string
}

func LoadOrders() (*Orders, error) {
	_ = godotenv.Load()

	e := &env{}
	cfg := &Orders{
		Port:           e.str("PORT", "8081"),
		PostgresURL:    e.required("POSTGRES_URL"),
		KafkaBrokers:   e.list("KAFKA_BROKERS"),
		EventsTopic:    e.str("ORDER_EVENTS_TOPIC", DefaultEventsTopic),
		Shipping:       e.money("SHIPPING_FLAT", "5.99"),
		TaxRate:        e.money("TAX_RATE", "0.083"),
		DeliveryWindow: e.duration("DELIVERY_WINDOW", 7*24*time.Hour),
		OutboxInterval: e.duration("OUTBOX_INTERVAL", time.Second),
		OutboxBatch:    e.integer("OUTBOX_BATCH", 100),
		OTLPEndpoint:   e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	return cfg, e.err()
}

func LoadGateway() (*Gateway, error) {
	_ = godotenv.Load()

	e := &env{}
	cfg := &Gateway{
		Port:             e.str("PORT", "8080"),
		OrdersServiceURL: e.required("ORDERS_SERVICE_URL"),
		JWTSecret:        e.required("JWT_SECRET"),
		RateLimitRPS:     e.number("RATE_LIMIT_RPS", 10),
		RateLimitBurst:   e.integer("RATE_LIMIT_BURST", 20),
		OTLPEndpoint:     e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	return cfg, e.err()
}

func LoadWorker() (*Worker, error) {
	_ = godotenv.Load()

	e := &env{}
	cfg := &Worker{
		KafkaBrokers:    e.list("KAFKA_BROKERS"),
		EventsTopic:     e.str("ORDER_EVENTS_TOPIC", DefaultEventsTopic),
		GroupID:         e.str("WORKER_GROUP_ID", "notification-worker"),
		EmailServiceURL: e.required("EMAIL_SERVICE_URL"),
		OTLPEndpoint:    e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	if len(cfg.KafkaBrokers) == 0 {
		e.errs = append(e.errs, errors.New("KAFKA_BROKERS is required"))
	}
	return cfg, e.err()
}

func LoadEmail() (*Email, error) {
	_ = godotenv.Load()

	e := &env{}
	cfg := &Email{
		Port:         e.str("PORT", "8084"),
		OTLPEndpoint: e.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
	return cfg, e.err()
}

func LoadMigrate() (*Migrate, error) {
	_ = godotenv.Load()

	e := &env{}
	cfg := &Migrate{
		PostgresURL:    e.required("POSTGRES_URL"),
		MigrationsPath: e.str("MIGRATIONS_PATH", ""),
	}
	return cfg, e.err()
}

// env collects every problem so a misconfigured service reports them all at once.
type env struct {
	errs []error
}

func (e *env) err() error {
	return errors.Join(e.errs...)
}

func (e *env) str(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (e *env) required(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		e.errs = append(e.errs, fmt.Errorf("%s is required", key))
	}
	return v
}

func (e *env) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *env) integer(key string, fallback int) int {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		e.errs = append(e.errs, fmt.Errorf("%s must be a positive integer, got %q", key, raw))
		return fallback
	}
	return n
}

func (e *env) number(key string, fallback float64) float64 {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		e.errs = append(e.errs, fmt.Errorf("%s must be a positive number, got %q", key, raw))
		return fallback
	}
	return f
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		e.errs = append(e.errs, fmt.Errorf("%s must be a positive duration, got %q", key, raw))
		return fallback
	}
	return d
}

func (e *env) money(key, fallback string) decimal.Decimal {
	raw := e.str(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		e.errs = append(e.errs, fmt.Errorf("%s must be a non-negative decimal, got %q", key, raw))
		return decimal.RequireFromString(fallback)
	}
	return d
}
