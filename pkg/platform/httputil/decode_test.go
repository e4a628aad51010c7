package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "dsnap/pkg/domain-errors"
)

type scopeRequest struct {
	Scope      []string `json:"scope"`
	normalized bool
}

func (r *scopeRequest) Normalize() { r.normalized = true }

func (r *scopeRequest) Validate() error {
	if len(r.Scope) > 2 {
		return errors.New("too many scopes")
	}
	return nil
}

type forbiddenRequest struct{}

func (r *forbiddenRequest) Validate() error {
	return dErrors.New(dErrors.CodeForbidden, "nope")
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("decodes, normalizes and validates", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"scope":["registrations:read"]}`))
		req, ok := DecodeAndPrepare[scopeRequest](w, r, discard)
		require.True(t, ok)
		assert.True(t, req.normalized)
		assert.Equal(t, []string{"registrations:read"}, req.Scope)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{`))
		_, ok := DecodeAndPrepare[scopeRequest](w, r, discard)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeBody(t, w)["error"])
	})

	t.Run("plain validation errors become validation_error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"scope":["a","b","c"]}`))
		_, ok := DecodeAndPrepare[scopeRequest](w, r, discard)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", decodeBody(t, w)["error"])
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"scopes":["registrations:read"]}`))
		_, ok := DecodeAndPrepare[scopeRequest](w, r, discard)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body is required", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader("  "))
		_, ok := DecodeAndPrepare[scopeRequest](w, r, discard)
		require.False(t, ok)
		assert.Equal(t, "request body is required", decodeBody(t, w)["error_description"])
	})

	t.Run("domain errors keep their code", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{}`))
		_, ok := DecodeAndPrepare[forbiddenRequest](w, r, discard)
		require.False(t, ok)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestDecode(t *testing.T) {
	t.Run("blank body is the zero value when allowed", func(t *testing.T) {
		req, err := Decode[scopeRequest](strings.NewReader("\n"), true)
		require.NoError(t, err)
		assert.Empty(t, req.Scope)
	})

	t.Run("trailing documents are rejected", func(t *testing.T) {
		_, err := Decode[scopeRequest](strings.NewReader(`{} {}`), true)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("oversized bodies are reported", func(t *testing.T) {
		body := http.MaxBytesReader(httptest.NewRecorder(), io.NopCloser(strings.NewReader(`{"scope":["registrations:read"]}`)), 4)
		_, err := Decode[scopeRequest](body, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "validation with violations",
			err:    dErrors.NewValidation("invalid registration", []string{"'disaster_id' is a required property"}),
			status: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{"'disaster_id' is a required property"}, body[InvalidRequestKey])
			},
		},
		{
			name:   "not found",
			err:    dErrors.New(dErrors.CodeNotFound, "registration not found"),
			status: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "not_found", body["error"])
				assert.Equal(t, "registration not found", body["error_description"])
			},
		},
		{
			name:   "unauthorized",
			err:    dErrors.New(dErrors.CodeUnauthorized, "authentication required"),
			status: http.StatusUnauthorized,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "unauthorized", body["error"])
			},
		},
		{
			name:   "forbidden",
			err:    dErrors.New(dErrors.CodeForbidden, "missing scope"),
			status: http.StatusForbidden,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "forbidden", body["error"])
			},
		},
		{
			name:   "unknown error hides details",
			err:    errors.New("pq: connection refused"),
			status: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "internal_error", body["error"])
				assert.NotContains(t, body, "error_description")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			tt.check(t, decodeBody(t, w))
		})
	}
}
