// Package auth provides bearer token authentication for the HTTP server mode.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerTokenAuth validates Authorization headers against a shared token.
type BearerTokenAuth struct {
	token string
}

// NewBearerTokenAuth creates an authenticator for the given token.
func NewBearerTokenAuth(token string) *BearerTokenAuth {
	return &BearerTokenAuth{token: token}
}

// IsAuthorized reports whether the request carries the expected bearer token.
// Comparison is constant time.
func (b *BearerTokenAuth) IsAuthorized(r *http.Request) bool {
	const prefix = "Bearer "

	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return false
	}

	token := strings.TrimPrefix(header, prefix)
	if token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(b.token)) == 1
}

// SetUnauthorizedHeaders sets the standard WWW-Authenticate header.
func (b *BearerTokenAuth) SetUnauthorizedHeaders(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
}
