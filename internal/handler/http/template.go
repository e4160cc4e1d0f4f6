package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/httputil"
)

// TemplateHandler serves the image template library.
type TemplateHandler struct {
	service   Templates
	maxUpload int64
	logger    *slog.Logger
}

func NewTemplateHandler(svc Templates, maxUpload int64, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{service: svc, maxUpload: maxUpload, logger: logger}
}

// Upload handles POST /api/v1/templates (multipart/form-data with "name"
// and one "file").
func (h *TemplateHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxUpload); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files, closeFiles, err := openImages(r.MultipartForm, "file")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer closeFiles()
	if len(files) != 1 {
		httputil.WriteError(w, r, apperrors.InvalidInput("exactly one file is required"), h.logger)
		return
	}

	tpl, err := h.service.Upload(r.Context(), r.FormValue("name"), files[0])
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, tpl)
}

// List handles GET /api/v1/templates.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(templates))
}

// Delete handles DELETE /api/v1/templates/{filename}.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "filename")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
