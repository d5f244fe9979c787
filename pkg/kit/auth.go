package kit

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const (
	APIKeyHeader     = "x-api-key"
	APIKeyQueryParam = "api_key"

	unauthorized = "Unauthorized"
)

// APIKeyFromRequest returns the key from the x-api-key header, falling back
// to the api_key query parameter.
func APIKeyFromRequest(r *http.Request) string {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k
	}
	return r.URL.Query().Get(APIKeyQueryParam)
}

// APIKeyMatches reports whether supplied is exactly secret. An empty secret
// matches nothing.
func APIKeyMatches(supplied, secret string) bool {
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) == 1
}

// RequireAPIKey rejects requests whose key does not match secret with
// 401 {"error":"Unauthorized"} before next runs.
func RequireAPIKey(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !APIKeyMatches(APIKeyFromRequest(r), secret) {
				WriteError(w, r, http.StatusUnauthorized, unauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MetricsAuth guards the metrics endpoint with a static bearer token.
func MetricsAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				WriteError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			if !APIKeyMatches(strings.TrimPrefix(authz, "Bearer "), token) {
				WriteError(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
