package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_ErrorString(t *testing.T) {
	plain := NewDomainError(ErrorCodeUserNotFound, "user not found")
	assert.Equal(t, "USER_NOT_FOUND: user not found", plain.Error())

	wrapped := WrapError(ErrorCodeDatabaseError, "insert failed", errors.New("connection reset"))
	assert.Equal(t, "INTERNAL_DATABASE_ERROR: insert failed: connection reset", wrapped.Error())
}

func TestDomainError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load subscription: %w", ErrSubscriptionNotFound.WithDetail("id", "abc"))

	assert.True(t, errors.Is(err, ErrSubscriptionNotFound))
	assert.False(t, errors.Is(err, ErrUserNotFound))
	assert.True(t, IsNotFoundError(err))
	assert.Equal(t, ErrorCodeSubscriptionNotFound, GetErrorCode(err))
}

func TestDomainError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	withID := ErrUserNotFound.WithDetail("id", "42")

	assert.Equal(t, "42", withID.Details["id"])
	assert.NotContains(t, ErrUserNotFound.Details, "id")
}

func TestDomainError_Unwrap(t *testing.T) {
	root := errors.New("boom")
	err := WrapError(ErrorCodeInternalError, "failed", root)

	assert.True(t, errors.Is(err, root))

	var de *DomainError
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &de))
	assert.Equal(t, ErrorCodeInternalError, de.Code)
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		auth       bool
		forbidden  bool
		conflict   bool
		validation bool
	}{
		{"user not found", ErrUserNotFound, true, false, false, false, false},
		{"missing token", ErrAuthMissing, false, true, false, false, false},
		{"bad password", ErrAuthInvalidPassword, false, true, false, false, false},
		{"not owner", ErrAuthAccessDenied, false, false, true, false, false},
		{"not admin", ErrAuthAdminRequired, false, false, true, false, false},
		{"duplicate user", ErrUserAlreadyExists, false, false, false, true, false},
		{"cancel twice", ErrSubscriptionAlreadyCancelled, false, false, false, true, false},
		{"field error", NewValidationError("price", "price cannot be negative"), false, false, false, false, true},
		{"plain error", errors.New("plain"), false, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFoundError(tt.err))
			assert.Equal(t, tt.auth, IsAuthError(tt.err))
			assert.Equal(t, tt.forbidden, IsForbiddenError(tt.err))
			assert.Equal(t, tt.conflict, IsConflictError(tt.err))
			assert.Equal(t, tt.validation, IsValidationError(tt.err))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := NewValidationError("notificationDays", "must be at least 1")
	assert.Equal(t, "validation error on field 'notificationDays': must be at least 1", err.Error())
}
