package middleware

import (
	"fmt"
	"net/http"

	"github.com/codmer/pulsedoc/internal/api"
)

// MaxBodyBytes caps request bodies at limit. A declared Content-Length over
// the limit is refused before the handler runs; chunked bodies are cut off
// by http.MaxBytesReader while being read. Bodyless methods pass through.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	message := fmt.Sprintf("request body exceeds %d bytes", limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, message)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
