package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/kbrag-go/internal/logging"
)

const authRealm = `Bearer realm="kbrag"`

// authMiddleware requires "Authorization: Bearer <apiKey>" on next. An empty
// apiKey disables the check; New logs that once at startup. Token values are
// never logged.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logging.FromContext(r.Context())

		token := bearerToken(r)
		switch {
		case token == "":
			log.Warn("auth: missing Authorization header", slog.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", authRealm)
			http.Error(w, "authorization required", http.StatusUnauthorized)
			return
		case subtle.ConstantTimeCompare([]byte(token), want) != 1:
			log.Warn("auth: invalid token", slog.String("path", r.URL.Path))
			w.Header().Set("WWW-Authenticate", authRealm+` error="invalid_token"`)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// bearerToken returns the token of an "Authorization: Bearer <token>"
// header, or "" when absent or malformed.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
