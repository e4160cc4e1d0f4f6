package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/service"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/httputil"
	"github.com/agromart/marketplace/pkg/pagination"
)

// ConsultantHandler serves consultant profiles and appointments.
type ConsultantHandler struct {
	service   Consultants
	maxUpload int64
	logger    *slog.Logger
}

func NewConsultantHandler(svc Consultants, maxUpload int64, logger *slog.Logger) *ConsultantHandler {
	return &ConsultantHandler{service: svc, maxUpload: maxUpload, logger: logger}
}

// --- Request DTOs ---

type BookAppointmentRequest struct {
	ConsultantID string `json:"consultant_id" validate:"required,uuid"`
	Mode         string `json:"mode" validate:"required,oneof=online offline"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string `json:"end_time" validate:"required,datetime=15:04"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending accepted rejected completed cancelled"`
}

// --- Handlers ---

// UpdateProfile handles PUT /api/v1/consultants/profile (multipart/form-data).
// The optional "image" file replaces the profile picture.
func (h *ConsultantHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxUpload); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	years, err := formInt(r, "experience_years")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	charges, err := formInt(r, "starting_charges")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	images, closeImages, err := openImages(r.MultipartForm, "image")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer closeImages()
	if len(images) > 1 {
		httputil.WriteError(w, r, apperrors.InvalidInput("only one profile image may be uploaded"), h.logger)
		return
	}
	var image *service.ImageUpload
	if len(images) == 1 {
		image = &images[0]
	}

	acc, err := h.service.UpdateProfile(r.Context(), caller(r).AccountID, service.ProfileInput{
		FirstName:       r.FormValue("first_name"),
		LastName:        r.FormValue("last_name"),
		Expertise:       r.FormValue("expertise"),
		ExperienceYears: int(years),
		StartingCharges: charges,
	}, image)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, acc)
}

// List handles GET /api/v1/consultants.
func (h *ConsultantHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	consultants, total, err := h.service.ListConsultants(r.Context(), page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, pagination.NewResult(consultants, total, page))
}

// Book handles POST /api/v1/consultants/appointments.
func (h *ConsultantHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	appt, err := h.service.Book(r.Context(), caller(r).AccountID, service.BookInput{
		ConsultantID: req.ConsultantID,
		Mode:         domain.AppointmentMode(req.Mode),
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, appt)
}

// UpdateStatus handles PATCH /api/v1/consultants/appointments/{id}/status.
func (h *ConsultantHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "appointment id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	appt, err := h.service.UpdateStatus(r.Context(), caller(r).AccountID, id.String(), domain.AppointmentStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, appt)
}

// UserAppointments handles GET /api/v1/consultants/appointments.
func (h *ConsultantHandler) UserAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.service.ListForUser(r.Context(), caller(r).AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(appts))
}

// ConsultantAppointments handles GET /api/v1/consultants/appointments/consultant.
func (h *ConsultantHandler) ConsultantAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.service.ListForConsultant(r.Context(), caller(r).AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(appts))
}

// BookedSlots handles GET /api/v1/consultants/{id}/booked-slots?date=.
func (h *ConsultantHandler) BookedSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "consultant id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	slots, err := h.service.BookedSlots(r.Context(), id.String(), r.URL.Query().Get("date"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(slots))
}
