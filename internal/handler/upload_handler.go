package handler

import (
	"encoding/json"
	"net/http"

	"storefront/internal/media"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// UploadHandler issues presigned product-image uploads.
type UploadHandler struct {
	uploader media.Uploader
	logger   zerolog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploader media.Uploader, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		logger:   logger.With().Str("handler", "upload").Logger(),
	}
}

// Presign handles POST /api/uploads requests.
func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	c, ok := customer(w, r, h.logger)
	if !ok {
		return
	}

	body, err := readBody(w, r, maxRequestBody)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}
	if err := validateJSONSchema(uploadSchemaLoader, body); err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	var req model.UploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	ticket, err := h.uploader.PresignUpload(r.Context(), c.ID, req)
	if err != nil {
		writeServiceError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}
