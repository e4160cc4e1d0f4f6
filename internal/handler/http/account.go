package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/agromart/marketplace/internal/domain"
	"github.com/agromart/marketplace/internal/service"
	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/httputil"
)

// AccountHandler serves the OTP signup and login routes of one role.
type AccountHandler struct {
	role     domain.Role
	register Registrar
	auth     Authenticator
	logger   *slog.Logger
}

func NewAccountHandler(role domain.Role, register Registrar, auth Authenticator, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{role: role, register: register, auth: auth, logger: logger}
}

// --- Request DTOs ---

type SendEmailOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyEmailOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,otp"`
}

// SendPhoneOTPRequest carries the already verified email for roles that
// register with both.
type SendPhoneOTPRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

type VerifyPhoneOTPRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
	OTP   string `json:"otp" validate:"required,otp"`
}

type SignupRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	GSTNumber string `json:"gst_number" validate:"omitempty,gstin"`
	Password  string `json:"password" validate:"required,min=8,max=72"`

	Expertise       string `json:"expertise" validate:"max=200"`
	ExperienceYears int    `json:"experience_years" validate:"gte=0"`
	StartingCharges int64  `json:"starting_charges" validate:"gte=0"`
}

// LoginRequest identifies users by phone and everyone else by email.
type LoginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// --- Handlers ---

// SendEmailOTP handles POST /api/v1/{role}/send-email-otp.
func (h *AccountHandler) SendEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req SendEmailOTPRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	if err := h.register.SendEmailOTP(r.Context(), h.role, req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "otp sent to "+req.Email)
}

// VerifyEmailOTP handles POST /api/v1/{role}/verify-email-otp.
func (h *AccountHandler) VerifyEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailOTPRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	if err := h.register.VerifyEmailOTP(r.Context(), h.role, req.Email, req.OTP); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "email verified")
}

// SendPhoneOTP handles POST /api/v1/{role}/send-otp.
func (h *AccountHandler) SendPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var req SendPhoneOTPRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	if err := h.register.SendPhoneOTP(r.Context(), h.role, req.Phone, req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "otp sent to "+req.Phone)
}

// VerifyPhoneOTP handles POST /api/v1/{role}/verify-otp.
func (h *AccountHandler) VerifyPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyPhoneOTPRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	if err := h.register.VerifyPhoneOTP(r.Context(), h.role, req.Phone, req.OTP); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	writeMessage(w, http.StatusOK, "phone verified")
}

// Signup handles POST /api/v1/{role}/signup.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	in := service.SignupInput{
		Role:      h.role,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		GSTNumber: req.GSTNumber,
		Password:  req.Password,
	}
	if h.role == domain.RoleConsultant {
		in.Consultant = &domain.ConsultantProfile{
			Expertise:       strings.TrimSpace(req.Expertise),
			ExperienceYears: req.ExperienceYears,
			StartingCharges: req.StartingCharges,
		}
	}

	acc, err := h.register.Signup(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, acc)
}

// Login handles POST /api/v1/{role}/login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req, h.logger) {
		return
	}

	identifier := req.Email
	if h.role == domain.RoleUser {
		identifier = req.Phone
	}
	if identifier == "" {
		field := "email"
		if h.role == domain.RoleUser {
			field = "phone"
		}
		httputil.WriteError(w, r, apperrors.InvalidInput(field+" is required"), h.logger)
		return
	}

	tokens, err := h.auth.Login(r.Context(), h.role, identifier, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, tokens)
}

// RefreshToken handles POST /api/v1/{role}/refresh-token.
func (h *AccountHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decode(w, r, &req, h.logger) {
		return
	}
	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, tokens)
}

// Me handles GET /api/v1/{role}/me.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	acc, err := h.auth.Me(r.Context(), caller(r).AccountID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, acc)
}
