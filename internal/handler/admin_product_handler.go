package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// AdminProductHandler handles catalogue management requests. Routes using it
// must sit behind an admin role check.
type AdminProductHandler struct {
	service service.AdminProductService
	logger  zerolog.Logger
}

// NewAdminProductHandler creates a new admin product handler.
func NewAdminProductHandler(service service.AdminProductService, logger zerolog.Logger) *AdminProductHandler {
	return &AdminProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "admin_product").Logger(),
	}
}

// Create handles POST /api/admin/products requests.
func (h *AdminProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	product, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// Update handles PUT /api/admin/products/{id} requests.
func (h *AdminProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeProductNotFound, "product not found", h.logger)
		return
	}

	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	product, err := h.service.Update(r.Context(), productID, in)
	if errors.Is(err, model.ErrProductNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeProductNotFound, "product not found", h.logger)
		return
	}
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/admin/products/{id} requests.
func (h *AdminProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeProductNotFound, "product not found", h.logger)
		return
	}

	err := h.service.Delete(r.Context(), productID)
	if errors.Is(err, model.ErrProductNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeProductNotFound, "product not found", h.logger)
		return
	}
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decode reads and validates a product payload. isActive defaults to true.
func (h *AdminProductHandler) decode(w http.ResponseWriter, r *http.Request) (*model.ProductInput, bool) {
	body, err := readBody(w, r, maxRequestBody)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return nil, false
	}
	if err := validateJSONSchema(productSchemaLoader, body); err != nil {
		writeServiceError(w, r, err, h.logger)
		return nil, false
	}

	in := &model.ProductInput{IsActive: true}
	if err := json.Unmarshal(body, in); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return nil, false
	}
	return in, true
}
