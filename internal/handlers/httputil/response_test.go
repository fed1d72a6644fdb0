package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-tracker/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("name", "too short"), http.StatusBadRequest},
		{domain.ErrAuthMissing, http.StatusUnauthorized},
		{domain.ErrAuthInvalidPassword, http.StatusUnauthorized},
		{domain.ErrAuthAccessDenied, http.StatusForbidden},
		{domain.ErrAuthAdminRequired, http.StatusForbidden},
		{domain.ErrSubscriptionNotFound, http.StatusNotFound},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrUserAlreadyExists, http.StatusConflict},
		{domain.ErrSubscriptionAlreadyCancelled, http.StatusConflict},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrDatabaseError, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, map[string]string{"id": "1"}, "created")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, map[string]any{"id": "1"}, body["data"])
}

func TestError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	t.Run("validation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, req, zap.NewNop(), domain.NewValidationError("price", "must not be negative"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "VALIDATION_FAILED", body["error"])
		assert.Equal(t, "must not be negative", body["message"])
		assert.Equal(t, map[string]any{"field": "price"}, body["details"])
	})

	t.Run("domain", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, req, zap.NewNop(), domain.ErrSubscriptionAlreadyCancelled.WithDetail("id", "s1"))

		assert.Equal(t, http.StatusConflict, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "SUBSCRIPTION_ALREADY_CANCELLED", body["error"])
		assert.Equal(t, "s1", body["details"].(map[string]any)["id"])
	})

	t.Run("internal hides cause", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, req, zap.NewNop(), domain.WrapError(domain.ErrorCodeDatabaseError, "insert", errors.New("pq: secret detail")))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "INTERNAL_ERROR", body["error"])
		assert.NotContains(t, body["message"], "secret detail")
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"empty", "", "body"},
		{"malformed", "{", "body"},
		{"wrong type", `{"count":"three"}`, "count"},
		{"too large", `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}

	t.Run("ok", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","count":2,"extra":true}`))
		var p payload
		require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &p))
		assert.Equal(t, payload{Name: "x", Count: 2}, p)
	})
}
