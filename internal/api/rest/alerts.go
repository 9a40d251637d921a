package rest

import (
	"net/http"

	"github.com/gorilla/mux"
)

// ListAlerts handles GET /api/v1/alerts. Query parameters: resolved
// (true|false), device_id.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var resolved *bool
	switch r.URL.Query().Get("resolved") {
	case "true":
		v := true
		resolved = &v
	case "false":
		v := false
		resolved = &v
	}
	alerts, err := h.devices.ListAlerts(r.Context(), p, resolved, r.URL.Query().Get("device_id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// ResolveAlert handles POST /api/v1/alerts/{id}/resolve.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	a, err := h.devices.ResolveAlert(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}
