package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Authentication & Authorization Errors (AUTH_*)
	ErrorCodeAuthMissing         ErrorCode = "AUTH_MISSING"
	ErrorCodeAuthInvalid         ErrorCode = "AUTH_INVALID"
	ErrorCodeAuthInvalidPassword ErrorCode = "AUTH_INVALID_PASSWORD"
	ErrorCodeAuthAccessDenied    ErrorCode = "AUTH_ACCESS_DENIED"
	ErrorCodeAuthAdminRequired   ErrorCode = "AUTH_ADMIN_REQUIRED"
	ErrorCodeAuthBootstrapClosed ErrorCode = "AUTH_BOOTSTRAP_DISABLED"

	// User Errors (USER_*)
	ErrorCodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	ErrorCodeUserAlreadyExists ErrorCode = "USER_ALREADY_EXISTS"

	// Subscription Errors (SUBSCRIPTION_*)
	ErrorCodeSubscriptionNotFound         ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	ErrorCodeSubscriptionAlreadyCancelled ErrorCode = "SUBSCRIPTION_ALREADY_CANCELLED"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"

	// Rate limiting
	ErrorCodeRateLimited ErrorCode = "RATE_LIMITED"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
	ErrorCodeNotifierError ErrorCode = "INTERNAL_NOTIFIER_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so errors.Is(err, ErrUserNotFound)
// holds for wrapped copies as well as the sentinel itself.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error with an extra detail field.
// Sentinels are shared, so they are never mutated in place.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Err: e.Err, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrorCodeValidationFailed
	}
	return ""
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeUserNotFound ||
		code == ErrorCodeSubscriptionNotFound
}

// IsAuthError checks if an error means the caller is not authenticated
func IsAuthError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAuthMissing ||
		code == ErrorCodeAuthInvalid ||
		code == ErrorCodeAuthInvalidPassword
}

// IsForbiddenError checks if an authenticated caller lacks permission
func IsForbiddenError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAuthAccessDenied ||
		code == ErrorCodeAuthAdminRequired ||
		code == ErrorCodeAuthBootstrapClosed
}

// IsConflictError checks if an error is a state or uniqueness conflict
func IsConflictError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeUserAlreadyExists ||
		code == ErrorCodeSubscriptionAlreadyCancelled
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationMissingField
}

// ValidationError reports malformed input on a single field.
// It is raised at the write boundary and never silently corrected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

var (
	ErrAuthMissing         = NewDomainError(ErrorCodeAuthMissing, "not authorized, no token")
	ErrAuthInvalid         = NewDomainError(ErrorCodeAuthInvalid, "not authorized, invalid token")
	ErrAuthInvalidPassword = NewDomainError(ErrorCodeAuthInvalidPassword, "invalid password")
	ErrAuthAccessDenied    = NewDomainError(ErrorCodeAuthAccessDenied, "access denied")
	ErrAuthAdminRequired   = NewDomainError(ErrorCodeAuthAdminRequired, "admin privileges required")
	ErrAuthBootstrapClosed = NewDomainError(ErrorCodeAuthBootstrapClosed, "admin bootstrap is disabled")

	ErrUserNotFound      = NewDomainError(ErrorCodeUserNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError(ErrorCodeUserAlreadyExists, "user already exists")

	ErrSubscriptionNotFound         = NewDomainError(ErrorCodeSubscriptionNotFound, "subscription not found")
	ErrSubscriptionAlreadyCancelled = NewDomainError(ErrorCodeSubscriptionAlreadyCancelled, "subscription is already cancelled")

	ErrValidationFailed = NewDomainError(ErrorCodeValidationFailed, "validation failed")
	ErrRateLimited      = NewDomainError(ErrorCodeRateLimited, "too many requests, please try again later")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
