// Package middleware holds the layers wrapped around local API handlers.
//
// A middleware is func(next http.Handler) http.Handler: it does its check and
// either calls next or writes the error response itself.
package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/conectabot/inbox/pkg"
	"github.com/conectabot/inbox/pkg/ratelimit"
)

// AuthMiddleware guards the local API with the static UI token.
//
// With no token configured every request passes; the daemon then relies on
// listening on 127.0.0.1.
type AuthMiddleware struct {
	token   string
	limiter *ratelimit.FailureLimiter
}

// NewAuthMiddleware creates the middleware. limiter may be nil.
func NewAuthMiddleware(token string, limiter *ratelimit.FailureLimiter) *AuthMiddleware {
	return &AuthMiddleware{
		token:   token,
		limiter: limiter,
	}
}

// Enabled reports whether a UI token is configured.
func (m *AuthMiddleware) Enabled() bool {
	return m.token != ""
}

// ValidateUIToken compares in constant time. It also serves ws.TokenValidator.
func (m *AuthMiddleware) ValidateUIToken(token string) bool {
	if m.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) == 1
}

// Require checks "Authorization: Bearer <token>" (or ?token= for clients that
// cannot set headers). Repeated failures from one IP get 429.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		ip := ratelimit.ExtractIP(r)
		if m.limiter != nil && m.limiter.Blocked(ip) {
			retry := m.limiter.RetryAfterSeconds(ip)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
				"too many failed attempts, retry in "+ratelimit.FormatRetryMessage(retry))
			return
		}

		token := r.URL.Query().Get("token")
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
				return
			}
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if token == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		if !m.ValidateUIToken(token) {
			if m.limiter != nil {
				m.limiter.Fail(ip)
			}
			log.Printf("[auth] rejected UI token from %s", ip)
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if m.limiter != nil {
			m.limiter.Reset(ip)
		}
		next.ServeHTTP(w, r)
	})
}
