package middleware

import (
	"net/http"

	"github.com/cloo-solutions/quizgen/internal/api"
)

// MaxBodyBytes caps request bodies at limit. Declared oversize bodies are
// rejected up front; chunked bodies fail on read with *http.MaxBytesError,
// which the handlers turn into the same 413.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
