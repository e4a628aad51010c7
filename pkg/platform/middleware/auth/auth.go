// Package auth resolves the request actor from Basic credentials or a bearer token.
// Authentication is optional: requests without an Authorization header proceed as
// the anonymous public, and the access policy decides what they may do.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "dsnap/pkg/domain"
	dErrors "dsnap/pkg/domain-errors"
	"dsnap/pkg/platform/httputil"
	"dsnap/pkg/requestcontext"
)

// BasicAuthenticator verifies staff username/password pairs.
type BasicAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (id.Actor, error)
}

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// StaffStatusChecker reports whether a staff account may still act. Tokens
// minted before an account was deactivated are rejected through it.
type StaffStatusChecker interface {
	IsActive(ctx context.Context, staffID id.StaffID) (bool, error)
}

// TokenClaims is the subset of bearer token claims the middleware needs.
type TokenClaims struct {
	StaffID  string
	Username string
	Scopes   []string
}

// Realm is advertised in WWW-Authenticate on 401 responses.
const Realm = "dsnap"

// Authenticator is the optional-authentication middleware.
type Authenticator struct {
	basic  BasicAuthenticator
	tokens TokenValidator
	status StaffStatusChecker
	logger *slog.Logger
}

// New builds the middleware. tokens and status may be nil to disable bearer
// tokens and the active-account check respectively.
func New(basic BasicAuthenticator, tokens TokenValidator, status StaffStatusChecker, logger *slog.Logger) *Authenticator {
	return &Authenticator{basic: basic, tokens: tokens, status: status, logger: logger}
}

// Handler attaches the resolved actor to the context. Presented credentials that
// fail verification end the request with 401; they never degrade to anonymous.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		actor, err := a.resolve(ctx, r, header)
		if err != nil {
			a.logger.WarnContext(ctx, "authentication failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
				w.Header().Set("WWW-Authenticate", `Basic realm="`+Realm+`"`)
			}
			httputil.WriteError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
	})
}

func (a *Authenticator) resolve(ctx context.Context, r *http.Request, header string) (id.Actor, error) {
	scheme, _, _ := strings.Cut(header, " ")
	switch {
	case strings.EqualFold(scheme, "Basic"):
		username, password, ok := r.BasicAuth()
		if !ok || a.basic == nil {
			return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "malformed basic credentials")
		}
		return a.basic.Authenticate(ctx, username, password)
	case strings.EqualFold(scheme, "Bearer"):
		return a.resolveBearer(ctx, strings.TrimSpace(header[len(scheme):]))
	default:
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "unsupported authorization scheme")
	}
}

func (a *Authenticator) resolveBearer(ctx context.Context, token string) (id.Actor, error) {
	if a.tokens == nil || token == "" {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return id.Actor{}, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid or expired token")
	}
	staffID, err := id.ParseStaffID(claims.StaffID)
	if err != nil || staffID.IsNil() {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}
	if a.status != nil {
		active, err := a.status.IsActive(ctx, staffID)
		if err != nil {
			return id.Actor{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token")
		}
		if !active {
			return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "staff account is inactive")
		}
	}
	return id.Actor{StaffID: staffID, Username: claims.Username, Scopes: claims.Scopes}, nil
}
