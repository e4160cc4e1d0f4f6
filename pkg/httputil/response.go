// Package httputil renders the JSON envelope every endpoint answers with.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/agromart/marketplace/pkg/errors"
	"github.com/agromart/marketplace/pkg/logger"
	"github.com/agromart/marketplace/pkg/validator"
)

// Response is the envelope. Exactly one of Data and Error is set.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps data in the success envelope.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Data: data})
}

// WriteError classifies err and writes the failure envelope. Unclassified
// errors become a generic 500 and are logged with the request-scoped logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	ctx := r.Context()
	requestID := logger.CorrelationIDFromContext(ctx)

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    verr.Fields(),
			RequestID: requestID,
		}})
		return
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logger.FromContext(ctx, fallback).ErrorContext(ctx, "request failed",
				slog.String("code", appErr.Code),
				slog.String("error.kind", apperrors.Kind(err)),
				slog.String("error", err.Error()),
			)
		}
		WriteJSON(w, appErr.Status, Response{Error: &ErrorResponse{
			Code:      appErr.Code,
			Message:   appErr.Message,
			RequestID: requestID,
		}})
		return
	}

	status := apperrors.HTTPStatus(err)
	resp := &ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred", RequestID: requestID}
	switch status {
	case http.StatusNotFound:
		resp.Code, resp.Message = "NOT_FOUND", "resource not found"
	case http.StatusConflict:
		resp.Code, resp.Message = "CONFLICT", "resource already exists"
	case http.StatusBadRequest:
		resp.Code, resp.Message = "INVALID_INPUT", "invalid input"
	case http.StatusUnauthorized:
		resp.Code, resp.Message = "UNAUTHORIZED", "unauthorized"
	case http.StatusForbidden:
		resp.Code, resp.Message = "FORBIDDEN", "forbidden"
	case http.StatusServiceUnavailable:
		resp.Code, resp.Message = "UPSTREAM_FAILURE", "service temporarily unavailable"
	default:
		status = http.StatusInternalServerError
		logger.FromContext(ctx, fallback).ErrorContext(ctx, "internal error",
			slog.String("error.kind", apperrors.Kind(err)),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	WriteJSON(w, status, Response{Error: resp})
}

// ParseUUID validates a path parameter, writing a 400 when it is malformed.
func ParseUUID(w http.ResponseWriter, r *http.Request, name, value string) (uuid.UUID, bool) {
	id, err := uuid.Parse(value)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "INVALID_PARAMETER",
			Message:   name + " must be a valid UUID",
			RequestID: logger.CorrelationIDFromContext(r.Context()),
		}})
		return uuid.Nil, false
	}
	return id, true
}
