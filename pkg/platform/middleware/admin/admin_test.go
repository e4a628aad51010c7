package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var operator string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator = Operator(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		expected string
		token    string
		want     int
	}{
		{name: "matching token", expected: "s3cret", token: "s3cret", want: http.StatusNoContent},
		{name: "wrong token", expected: "s3cret", token: "guess", want: http.StatusUnauthorized},
		{name: "missing token", expected: "s3cret", want: http.StatusUnauthorized},
		{name: "admin disabled", expected: "", token: "", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/staff", nil)
			if tt.token != "" {
				req.Header.Set(TokenHeader, tt.token)
			}
			req.Header.Set(ActorHeader, "ops")
			w := httptest.NewRecorder()

			RequireAdminToken(tt.expected, logger)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
	assert.Equal(t, "ops", operator)
}
