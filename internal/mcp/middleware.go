package mcp

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyMiddleware wraps an HTTP handler with API key authentication
func APIKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check header first
		providedKey := r.Header.Get("X-API-Key")
		if providedKey == "" {
			// Fall back to Authorization header with Bearer token
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				providedKey = token
			}
		}
		if providedKey == "" {
			providedKey = r.URL.Query().Get("api_key")
		}

		if providedKey == "" || subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
