package middleware

import (
	"net/http"
	"strings"
)

const (
	// DefaultStandardMaxBodyBytes caps JSON request bodies on the control API (64KB).
	DefaultStandardMaxBodyBytes = 64 * 1024
	// DefaultIngestMaxBodyBytes caps telemetry/status ingest bodies (1MB).
	DefaultIngestMaxBodyBytes = 1024 * 1024
)

// MaxBodySize returns middleware that limits request body size: ingestMax for
// device ingest paths, standardMax otherwise. GET/HEAD/DELETE carry no body
// and pass through untouched.
func MaxBodySize(standardMax, ingestMax int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}
			max := standardMax
			if (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) &&
				strings.HasPrefix(r.URL.Path, "/api/v1/ingest/") {
				max = ingestMax
			}
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}
