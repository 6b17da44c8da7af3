package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives signed payment notifications from the gateway.
type WebhookHandler struct {
	reconciler service.Reconciler
	logger     zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(reconciler service.Reconciler, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		logger:     logger.With().Str("handler", "webhook").Logger(),
	}
}

// PayChangu handles POST /api/webhooks/paychangu requests. The raw body is
// passed through untouched so the signature covers exactly what was sent.
func (h *WebhookHandler) PayChangu(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, maxWebhookBody)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	result, err := h.reconciler.HandleWebhook(r.Context(), body, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	h.logger.Debug().
		Str("tx_ref", result.TxRef).
		Str("outcome", string(result.Outcome)).
		Msg("webhook processed")

	writeJSON(w, http.StatusOK, model.WebhookAck{Received: true})
}
