package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/pkg/httputil"
)

// ProfileHandler serves a signed-in user's own account details.
type ProfileHandler struct {
	profiles Profiles
	register Registrar
	logger   *slog.Logger
}

func NewProfileHandler(profiles Profiles, register Registrar, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, register: register, logger: logger}
}

// --- Request DTOs ---

type AddressRequest struct {
	LineOne  string `json:"line_one" validate:"required,max=200"`
	LineTwo  string `json:"line_two" validate:"max=200"`
	Street   string `json:"street" validate:"max=200"`
	Landmark string `json:"landmark" validate:"max=200"`
	City     string `json:"city" validate:"required,max=100"`
	State    string `json:"state" validate:"required,max=100"`
	Country  string `json:"country" validate:"max=100"`
	ZipCode  string `json:"zip_code" validate:"required,numeric,len=6"`
}

func (req AddressRequest) address() domain.Address {
	return domain.Address{
		LineOne:  req.LineOne,
		LineTwo:  req.LineTwo,
		Street:   req.Street,
		Landmark: req.Landmark,
		City:     req.City,
		State:    req.State,
		Country:  req.Country,
		ZipCode:  req.ZipCode,
	}
}

type UpdateNameRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type PhoneRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// --- Addresses ---

// AddAddress handles POST /api/v1/profile/addresses.
func (h *ProfileHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	var req AddressRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	addr, err := h.profiles.AddAddress(r.Context(), caller(r).AccountID, req.address())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, addr)
}

// ListAddresses handles GET /api/v1/profile/addresses.
func (h *ProfileHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.profiles.Addresses(r.Context(), caller(r).AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(addrs))
}

// UpdateAddress handles PUT /api/v1/profile/addresses/{id}.
func (h *ProfileHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "address id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req AddressRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	addr, err := h.profiles.UpdateAddress(r.Context(), caller(r).AccountID, id.String(), req.address())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, addr)
}

// DeleteAddress handles DELETE /api/v1/profile/addresses/{id}.
func (h *ProfileHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "address id", chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.profiles.DeleteAddress(r.Context(), caller(r).AccountID, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Account ---

// UpdateName handles PUT /api/v1/profile/name.
func (h *ProfileHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	var req UpdateNameRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	if err := h.profiles.UpdateName(r.Context(), caller(r).AccountID, req.FirstName, req.LastName); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "name updated")
}

// ChangePassword handles PUT /api/v1/profile/password.
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	if err := h.profiles.ChangePassword(r.Context(), caller(r).AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "password changed")
}

// SendPhoneOTP handles POST /api/v1/profile/phone/send-otp, the first
// step of moving the account to a new number.
func (h *ProfileHandler) SendPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	role := domain.Role(caller(r).Role)
	if err := h.register.SendPhoneChangeOTP(r.Context(), role, req.Phone); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "otp sent to "+req.Phone)
}

// VerifyPhoneOTP handles POST /api/v1/profile/phone/verify-otp.
func (h *ProfileHandler) VerifyPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyPhoneOTPRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	role := domain.Role(caller(r).Role)
	if err := h.register.VerifyPhoneOTP(r.Context(), role, req.Phone, req.OTP); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "phone verified")
}

// UpdatePhone handles PUT /api/v1/profile/phone.
func (h *ProfileHandler) UpdatePhone(w http.ResponseWriter, r *http.Request) {
	var req PhoneRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	if err := h.profiles.UpdatePhone(r.Context(), caller(r).AccountID, req.Phone); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "phone updated")
}
