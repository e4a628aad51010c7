// Package admin guards operator endpoints with a shared admin token.
package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "dsnap/pkg/domain-errors"
	"dsnap/pkg/platform/httputil"
	"dsnap/pkg/requestcontext"
)

// Header names read by RequireAdminToken.
const (
	TokenHeader = "X-Admin-Token"
	ActorHeader = "X-Admin-Actor"
)

type operatorKey struct{}

// Operator returns the name the admin caller gave in X-Admin-Actor, or "".
func Operator(ctx context.Context) string {
	if name, ok := ctx.Value(operatorKey{}).(string); ok {
		return name
	}
	return ""
}

// RequireAdminToken rejects requests whose X-Admin-Token does not match. An
// empty expected token rejects everything.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get(TokenHeader)
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			if name := r.Header.Get(ActorHeader); name != "" {
				ctx = context.WithValue(ctx, operatorKey{}, name)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
