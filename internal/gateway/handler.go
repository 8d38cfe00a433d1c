package gateway

import (
	"io"
	"log/slog"
	"net/http"
)

type Handler struct {
	ordersProxy *ServiceProxy
	logger      *slog.Logger
}

func NewHandler(ordersProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		ordersProxy: ordersProxy,
		logger:      logger,
	}
}

// HandleOrders forwards order and product routes to the orders service
// unchanged.
func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy, r.URL.Path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		writeJSONError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

// Routes registers the public API. Order routes require a token; stock
// reads are anonymous. Every route is rate limited.
func (h *Handler) Routes(auth *Authenticator, limiter *RateLimiter, wrap func(http.HandlerFunc) http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()

	authed := func(fn http.HandlerFunc) http.Handler {
		return auth.Middleware(limiter.Middleware(wrap(fn)))
	}
	public := func(fn http.HandlerFunc) http.Handler {
		return limiter.Middleware(wrap(fn))
	}

	mux.Handle("GET /orders", authed(h.HandleOrders))
	mux.Handle("POST /orders", authed(h.HandleOrders))
	mux.Handle("GET /orders/{orderId}", authed(h.HandleOrders))
	mux.Handle("POST /orders/{orderId}/cancel", authed(h.HandleOrders))
	mux.Handle("GET /products/stock", public(h.HandleOrders))
	mux.Handle("GET /products/{sku}/stock", public(h.HandleOrders))

	return mux
}
