// Package device classifies the caller's device from the User-Agent.
// The class is attached to registration events; the raw User-Agent never is.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"dsnap/pkg/requestcontext"
)

const (
	ClassDesktop = "desktop"
	ClassMobile  = "mobile"
	ClassBot     = "bot"
	ClassUnknown = "unknown"
)

// Classify maps a User-Agent string to a coarse device class.
func Classify(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ClassUnknown
	}
	ua := useragent.New(userAgent)
	switch {
	case ua.Bot():
		return ClassBot
	case ua.Mobile():
		return ClassMobile
	default:
		return ClassDesktop
	}
}

// Middleware stores the device class in the context. It must run after the
// metadata middleware, which extracts the User-Agent.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = requestcontext.WithDeviceClass(ctx, Classify(requestcontext.UserAgent(ctx)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
