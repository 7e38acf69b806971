package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var fallbackCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORS allows browser calls from origins. Credentials are allowed, so origins
// must be explicit; an empty list falls back to the local dev servers.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = fallbackCORSOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After", replayedHeader},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
