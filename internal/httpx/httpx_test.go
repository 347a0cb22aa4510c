package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JeanGrijp/csrfguard/csrf"
	"github.com/JeanGrijp/csrfguard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type body struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) body {
	t.Helper()
	var b body
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&b))
	return b
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	b := decode(t, rec)
	assert.True(t, b.Success)
	assert.JSONEq(t, `{"status":"ok"}`, string(b.Data))
	assert.Nil(t, b.Error)
}

func TestWriteErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", ErrMethodNotAllowed, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"csrf missing", csrf.ErrTokenMissing, http.StatusForbidden, csrf.CodeTokenMissing},
		{"csrf invalid wrapped", fmt.Errorf("guard: %w", csrf.ErrTokenInvalid), http.StatusForbidden, csrf.CodeTokenInvalid},
		{"validation", &store.ValidationError{Field: "name", Message: "is required"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			b := decode(t, rec)
			assert.False(t, b.Success)
			require.NotNil(t, b.Error)
			assert.Equal(t, tc.code, b.Error.Code)
			assert.NotEmpty(t, b.Error.Message)
		})
	}
}

func TestUnknownErrorsDoNotLeak(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("password=hunter2"))
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "x", dst.Name)

	for _, in := range []string{`{`, `not json`, `{"name":"a"}{"name":"b"}`} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(in))
		assert.ErrorIs(t, DecodeJSON(req, &dst), ErrInvalidJSON, in)
	}
}
