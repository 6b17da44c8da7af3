package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).
		Int("status", status).
		Str("request_id", chimw.GetReqID(r.Context())).
		Msg(message)

	writeJSON(w, status, model.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// writeServiceError maps a service error to its HTTP status. Anything not
// recognised becomes a generic 500 so internal detail never reaches the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var stockErr *model.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInsufficientStock, stockErr.Error(), logger)
		return
	}

	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidRequest, err.Error(), logger)
	case errors.Is(err, model.ErrUploadRejected):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeUploadRejected, err.Error(), logger)
	case errors.Is(err, model.ErrProductNotFound):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeProductNotFound, model.ErrProductNotFound.Message, logger)
	case errors.Is(err, model.ErrOrderStateConflict):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeOrderStateConflict, model.ErrOrderStateConflict.Message, logger)
	case errors.Is(err, model.ErrAmountMismatch):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeAmountMismatch, model.ErrAmountMismatch.Message, logger)
	case errors.Is(err, model.ErrOrderNotFound):
		writeError(w, r, http.StatusNotFound, model.ErrCodeOrderNotFound, model.ErrOrderNotFound.Message, logger)
	case errors.Is(err, model.ErrSlugTaken):
		writeError(w, r, http.StatusConflict, model.ErrCodeSlugTaken, model.ErrSlugTaken.Message, logger)
	case errors.Is(err, model.ErrForbidden):
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, model.ErrForbidden.Message, logger)
	case errors.Is(err, model.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthenticated.Message, logger)
	case errors.Is(err, model.ErrSignatureInvalid):
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeSignatureInvalid, model.ErrSignatureInvalid.Message, logger)
	case errors.Is(err, model.ErrRateLimited):
		writeError(w, r, http.StatusTooManyRequests, model.ErrCodeRateLimited, model.ErrRateLimited.Message, logger)
	case errors.Is(err, model.ErrPaymentInitiationFailed):
		logger.Error().Err(err).Str("request_id", chimw.GetReqID(r.Context())).Msg("payment initiation failed")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodePaymentInitiationFailed, model.ErrPaymentInitiationFailed.Message, logger)
	default:
		logger.Error().Err(err).Str("request_id", chimw.GetReqID(r.Context())).Msg("unhandled service error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "Internal server error", logger)
	}
}

// customer returns the authenticated caller or writes a 401.
func customer(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Customer, bool) {
	c, ok := middleware.CustomerFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthenticated.Message, logger)
		return model.Customer{}, false
	}
	return c, true
}

// pathUUID parses a UUID route parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// pagination parses limit and offset query parameters; absent values are zero
// and left for the service to default.
func pagination(r *http.Request) (limit, offset int, err error) {
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return 0, 0, model.InvalidRequest("invalid limit parameter")
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil {
			return 0, 0, model.InvalidRequest("invalid offset parameter")
		}
	}
	return limit, offset, nil
}
