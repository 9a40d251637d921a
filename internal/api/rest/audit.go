package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/repository"
)

// QueryAudit handles GET /api/v1/audit. Query parameters: action, user_id,
// resource, since, until (RFC 3339), limit. Admin and auditor only.
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if !auth.CanViewAudit(p.Role) {
		respondError(w, r, http.StatusForbidden, ErrCodeForbidden, "Insufficient permissions")
		return
	}

	q := r.URL.Query()
	f := repository.AuditFilter{
		Action:   q.Get("action"),
		UserID:   q.Get("user_id"),
		Resource: q.Get("resource"),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "since must be RFC 3339")
			return
		}
		f.Since = t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "until must be RFC 3339")
			return
		}
		f.Until = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	entries, err := h.recorder.Query(r.Context(), f)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
