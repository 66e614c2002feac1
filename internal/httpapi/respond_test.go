package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/attaboy/ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpBody(s string) *strings.Reader {
	return strings.NewReader(s)
}

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	assert.Equal(t, http.StatusOK, w.Code)

	var body envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.True(t, body.IsSuccess)
}

func TestRespondError(t *testing.T) {
	t.Run("AppError maps to its declared status", func(t *testing.T) {
		tests := []struct {
			err        *domain.AppError
			wantStatus int
			wantCode   string
		}{
			{domain.ErrNotFound("bet", "123"), 404, "NOT_FOUND"},
			{domain.ErrValidation("bad input"), 400, "VALIDATION_ERROR"},
			{domain.ErrUnauthorized("no token"), 401, "UNAUTHORIZED"},
			{domain.ErrConflict("duplicate"), 409, "CONFLICT"},
			{domain.ErrInsufficientFunds(), 400, "INSUFFICIENT_FUNDS"},
			{domain.ErrInternal("oops", nil), 500, "INTERNAL_ERROR"},
		}

		for _, tt := range tests {
			t.Run(tt.wantCode, func(t *testing.T) {
				w := httptest.NewRecorder()
				RespondError(w, tt.err)
				assert.Equal(t, tt.wantStatus, w.Code)

				var body envelope
				require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
				assert.False(t, body.IsSuccess)
				assert.Equal(t, tt.wantCode, body.ErrorCode)
				assert.NotEmpty(t, body.ErrorMessage)
			})
		}
	})

	t.Run("untyped error returns 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		RespondError(w, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body envelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.False(t, body.IsSuccess)
		assert.Equal(t, "INTERNAL_ERROR", body.ErrorCode)
	})
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", httpBody(`{"name":"test"}`))
		var dst struct {
			Name string `json:"name"`
		}
		require.NoError(t, DecodeJSON(r, &dst))
		assert.Equal(t, "test", dst.Name)
	})

	t.Run("malformed body errors", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", httpBody(`{not json`))
		var dst map[string]any
		assert.Error(t, DecodeJSON(r, &dst))
	})
}
