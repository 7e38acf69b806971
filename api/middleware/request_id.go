package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/gamehub/gamehub-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// client supplied ids are echoed into logs, so only plain tokens are trusted
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID tags the request and response with an id, reusing the caller's
// X-Request-Id when it looks sane.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !requestIDPattern.MatchString(id) {
				id = uuid.NewString()
				r.Header.Set(requestIDHeader, id)
			}
			w.Header().Set(requestIDHeader, id)

			if logg != nil {
				r = r.WithContext(logg.WithRequestID(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
