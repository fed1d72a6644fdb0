// Package httputil writes the JSON envelope shared by every endpoint:
// {"success": true, "data": ..., "message": ...} on success and
// {"success": false, "error": <code>, "message": ...} on failure.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/pkg/encoding"
)

// MaxBodyBytes bounds request bodies
const MaxBodyBytes = 1 << 20

// Response is the success envelope
type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Success bool   `json:"success"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Details map[string]any `json:"details,omitempty"`
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Success bool           `json:"success"`
}

// WriteJSON encodes v and writes it with status. Encoding happens before the
// header is sent so a failure still yields a clean 500.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	buf, err := encoding.EncodeJSON(v)
	if err != nil {
		http.Error(w, `{"success":false,"error":"INTERNAL_ERROR","message":"failed to encode response"}`,
			http.StatusInternalServerError)
		return
	}
	defer encoding.PutBuffer(buf)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Success writes data in the success envelope
func Success(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Response{Success: true, Data: data, Message: message})
}

// StatusFor maps an error to its HTTP status
func StatusFor(err error) int {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case domain.IsAuthError(err):
		return http.StatusUnauthorized
	case domain.IsForbiddenError(err):
		return http.StatusForbidden
	case domain.IsNotFoundError(err):
		return http.StatusNotFound
	case domain.IsConflictError(err):
		return http.StatusConflict
	case domain.GetErrorCode(err) == domain.ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err in the failure envelope. Internal errors are logged and
// their message replaced so storage details never reach the client.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Success: false}

	var (
		validationErr *domain.ValidationError
		domainErr     *domain.DomainError
	)
	switch {
	case status == http.StatusInternalServerError:
		logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		resp.Error = string(domain.ErrorCodeInternalError)
		resp.Message = "internal server error"
	case errors.As(err, &validationErr):
		resp.Error = string(domain.ErrorCodeValidationFailed)
		resp.Message = validationErr.Message
		resp.Details = map[string]any{"field": validationErr.Field}
	case errors.As(err, &domainErr):
		resp.Error = string(domainErr.Code)
		resp.Message = domainErr.Message
		if len(domainErr.Details) > 0 {
			resp.Details = domainErr.Details
		}
	}

	WriteJSON(w, status, resp)
}

// DecodeJSON reads a JSON body into v. Malformed bodies are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return domain.NewValidationError("body", "request body is required")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var (
			typeErr *json.UnmarshalTypeError
			maxErr  *http.MaxBytesError
		)
		switch {
		case errors.Is(err, io.EOF):
			return domain.NewValidationError("body", "request body is required")
		case errors.As(err, &typeErr):
			return domain.NewValidationError(typeErr.Field, fmt.Sprintf("must be a %s", typeErr.Type))
		case errors.As(err, &maxErr):
			return domain.NewValidationError("body", "request body is too large")
		default:
			return domain.NewValidationError("body", "malformed JSON")
		}
	}
	return nil
}
