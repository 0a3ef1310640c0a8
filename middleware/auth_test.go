package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/conectabot/inbox/pkg/ratelimit"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(m *AuthMiddleware, setup func(r *http.Request)) int {
	r := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	r.RemoteAddr = "127.0.0.1:40000"
	if setup != nil {
		setup(r)
	}
	w := httptest.NewRecorder()
	m.Require(okHandler).ServeHTTP(w, r)
	return w.Code
}

func TestRequire(t *testing.T) {
	m := NewAuthMiddleware("s3cret", nil)

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer s3cret") }, http.StatusNoContent},
		{"wrong bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"basic scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic s3cret") }, http.StatusUnauthorized},
		{"query", func(r *http.Request) { r.URL.RawQuery = "token=s3cret" }, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := serve(m, tt.setup); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequireDisabled(t *testing.T) {
	m := NewAuthMiddleware("", nil)
	if got := serve(m, nil); got != http.StatusNoContent {
		t.Errorf("status = %d, want pass-through", got)
	}
	if !m.ValidateUIToken("anything") {
		t.Error("disabled auth must accept any ws token")
	}
}

func TestRequireThrottlesFailures(t *testing.T) {
	limiter := ratelimit.NewFailureLimiterWithClock(clock.NewMock(), 2, time.Minute)
	defer limiter.Close()
	m := NewAuthMiddleware("s3cret", limiter)

	bad := func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }
	good := func(r *http.Request) { r.Header.Set("Authorization", "Bearer s3cret") }

	serve(m, bad)
	serve(m, bad)
	if got := serve(m, good); got != http.StatusTooManyRequests {
		t.Errorf("status after failures = %d, want 429", got)
	}
}
