package orders

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
	"github.com/joao-fontenele/storefront-orders/internal/validation"
)

const (
	// UserIDHeader carries the authenticated user id. The gateway sets it
	// after verifying the caller's token.
	UserIDHeader         = "X-User-ID"
	IdempotencyKeyHeader = "Idempotency-Key"

	maxBodyBytes = 1 << 20
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

type response struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	body, ok := h.readBody(w, r, validation.CreateOrder)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", domain.KindValidation)
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))

	order, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, response{Message: "Order created successfully", Data: order})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	params := ListParams{
		Page:      atoi(q.Get("page")),
		Limit:     atoi(q.Get("limit")),
		Status:    q.Get("status"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}

	list, err := h.service.List(r.Context(), userID, params)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.logger.Info("orders listed", "user_id", userID, "count", len(list.Orders))
	h.writeJSON(w, http.StatusOK, response{Message: "Orders retrieved successfully", Data: list})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	order, err := h.service.Get(r.Context(), userID, r.PathValue("orderId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Message: "Order retrieved successfully", Data: order})
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	body, ok := h.readBody(w, r, validation.CancelOrder)
	if !ok {
		return
	}

	var req cancelOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", domain.KindValidation)
		return
	}

	order, err := h.service.Cancel(r.Context(), userID, r.PathValue("orderId"), req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Message: "Order cancelled successfully", Data: order})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimPrefix(r.Header.Get(UserIDHeader), "user_")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusUnauthorized, "authentication required", "")
		return 0, false
	}
	return id, true
}

// readBody reads and schema-checks the request body. An empty body is
// validated as an empty object.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, schema *validation.Schema) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", domain.KindValidation)
		return nil, false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}

	if err := schema.Validate(body); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			h.writeError(w, http.StatusUnprocessableEntity, strings.Join(verr.Violations, "; "), domain.KindValidation)
			return nil, false
		}
		h.logger.Error("failed to validate request", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error", "")
		return nil, false
	}
	return body, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		h.logger.Error("order request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error", "")
		return
	}
	h.writeError(w, statusFor(kind), err.Error(), kind)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindProductNotFound, domain.KindOrderNotFound:
		return http.StatusNotFound
	case domain.KindOutOfStock, domain.KindAlreadyCancelled, domain.KindCannotCancel:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, kind domain.ErrorKind) {
	h.writeJSON(w, status, errorResponse{Error: message, Code: string(kind)})
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
