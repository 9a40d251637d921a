package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/voltguard/voltguard-backend/internal/api/middleware"
	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type twoFactorRequest struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
}

type loginResponse struct {
	Token             string       `json:"token,omitempty"`
	ExpiresAt         time.Time    `json:"expires_at,omitempty"`
	TwoFactorRequired bool         `json:"two_factor_required,omitempty"`
	SessionID         string       `json:"session_id,omitempty"`
	User              *models.User `json:"user,omitempty"`
}

// Login handles POST /api/v1/auth/login. Accounts with a second factor
// enrolled get a pending session id back instead of a token; the token is
// minted by TwoFactor once the code checks out.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ip := middleware.ClientIP(r)
	if h.tracker.Blocked(ip) {
		respondError(w, r, http.StatusTooManyRequests, ErrCodeInvalidRequest, "Too many failed attempts, try again later")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "email and password are required")
		return
	}

	meta := service.RequestMeta{SourceAddress: ip, UserAgent: r.UserAgent()}
	sess, u, err := h.sessions.BeginLogin(r.Context(), req.Email, req.Password, meta)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.tracker.RecordFailure(ip)
		}
		respondServiceError(w, r, err)
		return
	}
	h.tracker.RecordSuccess(ip)

	if sess.State == models.SessionPendingSecondFactor {
		respondJSON(w, http.StatusOK, loginResponse{
			TwoFactorRequired: true,
			SessionID:         sess.ID,
		})
		return
	}
	h.respondWithToken(w, r, sess, u)
}

// TwoFactor handles POST /api/v1/auth/2fa.
func (h *Handler) TwoFactor(w http.ResponseWriter, r *http.Request) {
	var req twoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "session_id and code are required")
		return
	}
	ip := middleware.ClientIP(r)
	if h.tracker.Blocked(ip) {
		respondError(w, r, http.StatusTooManyRequests, ErrCodeInvalidRequest, "Too many failed attempts, try again later")
		return
	}

	meta := service.RequestMeta{SourceAddress: ip, UserAgent: r.UserAgent()}
	sess, u, err := h.sessions.CompleteSecondFactor(r.Context(), req.SessionID, req.Code, meta)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			h.tracker.RecordFailure(ip)
		}
		respondServiceError(w, r, err)
		return
	}
	h.tracker.RecordSuccess(ip)
	h.respondWithToken(w, r, sess, u)
}

func (h *Handler) respondWithToken(w http.ResponseWriter, r *http.Request, sess *models.Session, u *models.User) {
	token, err := auth.IssueAccessToken(h.jwtSecret, sess.ID, u.ID, u.Email, u.Role, sess.ExpiresAt)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to issue token")
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		User:      u,
	})
}

// Logout handles POST /api/v1/auth/logout. It accepts the bearer token
// directly (the path is public so that expired tokens can still log out)
// and revokes the session it names. Always 200: logout is idempotent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if token := bearerToken(r); token != "" {
		if claims, err := auth.ValidateTokenAllowExpired(h.jwtSecret, token); err == nil {
			sessionID = claims.SessionID()
		}
	}
	meta := service.RequestMeta{SourceAddress: middleware.ClientIP(r), UserAgent: r.UserAgent()}
	if err := h.sessions.Logout(r.Context(), sessionID, meta); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Enroll2FA handles POST /api/v1/auth/2fa/enroll. The secret takes effect on
// the next login; the current session stays valid.
func (h *Handler) Enroll2FA(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	secret, url, err := h.sessions.EnrollSecondFactor(r.Context(), p)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"secret":      secret,
		"otpauth_url": url,
	})
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	hdr := r.Header.Get("Authorization")
	if len(hdr) > len(prefix) && hdr[:len(prefix)] == prefix {
		return hdr[len(prefix):]
	}
	return ""
}
