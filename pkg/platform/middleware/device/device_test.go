package device

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"dsnap/pkg/requestcontext"
)

func TestClassify(t *testing.T) {
	tests := map[string]struct {
		ua   string
		want string
	}{
		"empty":   {ua: "", want: ClassUnknown},
		"desktop": {ua: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", want: ClassDesktop},
		"mobile":  {ua: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", want: ClassMobile},
		"bot":     {ua: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", want: ClassBot},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ua))
		})
	}
}

func TestMiddleware_UsesUserAgentFromContext(t *testing.T) {
	var class string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class = requestcontext.DeviceClass(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/registrations", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), "10.0.0.1",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, ClassMobile, class)
}
