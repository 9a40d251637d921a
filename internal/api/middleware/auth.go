package middleware

import (
	"net/http"
	"strings"

	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/service"
)

// publicPath reports whether the request needs no session. Login and the
// second-factor step mint sessions; device ingestion authenticates at the
// fleet transport, not here; probes and metrics stay open for the platform.
func publicPath(path string) bool {
	switch {
	case path == "/healthz/live", path == "/healthz/ready", path == "/metrics":
		return true
	case path == "/api/v1/auth/login", path == "/api/v1/auth/2fa", path == "/api/v1/auth/logout":
		return true
	case strings.HasPrefix(path, "/api/v1/ingest/"):
		return true
	case strings.HasPrefix(path, "/ws/"):
		// the websocket handler validates its own token
		return true
	}
	return false
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Auth returns middleware that resolves the bearer token to a live session
// and puts the resulting principal in the request context. The JWT is only
// the envelope: the session id inside is re-checked against the session
// store on every request, so revocation and expiry always win.
func Auth(jwtSecret string, sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			token := extractBearer(r)
			if token == "" {
				unauthorized(w, "Authentication required")
				return
			}
			claims, err := auth.ValidateToken(jwtSecret, token)
			if err != nil {
				unauthorized(w, "Invalid or expired token")
				return
			}
			p, err := sessions.Authorize(r.Context(), claims.SessionID())
			if err != nil {
				unauthorized(w, "Invalid or expired session")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
