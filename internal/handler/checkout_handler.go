package handler

import (
	"encoding/json"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// CheckoutHandler starts payment sessions for carts and pending orders.
type CheckoutHandler struct {
	service service.CheckoutService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.CheckoutService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /api/checkout requests.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	c, ok := customer(w, r, h.logger)
	if !ok {
		return
	}

	body, err := readBody(w, r, maxRequestBody)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if err := validateJSONSchema(checkoutSchemaLoader, body); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	var req model.CheckoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Checkout(r.Context(), c, &req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Recheckout handles POST /api/orders/{id}/checkout requests.
func (h *CheckoutHandler) Recheckout(w http.ResponseWriter, r *http.Request) {
	c, ok := customer(w, r, h.logger)
	if !ok {
		return
	}

	orderID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeOrderNotFound, model.ErrOrderNotFound.Message, h.logger)
		return
	}

	resp, err := h.service.Recheckout(r.Context(), c, orderID)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
