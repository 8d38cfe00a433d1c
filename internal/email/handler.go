package email

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type Handler struct {
	renderer *Renderer
	logger   *slog.Logger
}

func NewHandler(renderer *Renderer, logger *slog.Logger) *Handler {
	return &Handler{
		renderer: renderer,
		logger:   logger,
	}
}

type SendRequest struct {
	To       string    `json:"to"`
	Template string    `json:"template"`
	Data     OrderData `json:"data"`
}

type sendResponse struct {
	Status  string `json:"status"`
	Subject string `json:"subject"`
}

// HandleSend renders the requested template. Delivery is a log line; there
// is no mail transport behind this service.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.To) == "" {
		h.writeError(w, http.StatusBadRequest, "recipient is required")
		return
	}

	subject, body, err := h.renderer.Render(req.Template, req.Data)
	if errors.Is(err, ErrUnknownTemplate) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to render email", "error", err, "template", req.Template)
		h.writeError(w, http.StatusInternalServerError, "failed to render email")
		return
	}

	h.logger.Info("email sent",
		"to", req.To,
		"template", req.Template,
		"subject", subject,
		"order_number", req.Data.OrderNumber,
		"body_bytes", len(body),
	)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent", Subject: subject})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
