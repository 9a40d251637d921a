package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

type registerDeviceRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type renameDeviceRequest struct {
	DisplayName string `json:"display_name"`
}

type relayRequest struct {
	On bool `json:"on"`
}

// ListDevices handles GET /api/v1/devices.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	devices, err := h.devices.ListDevices(r.Context(), p)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, devices)
}

// GetDevice handles GET /api/v1/devices/{id}.
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	d, err := h.devices.GetDevice(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// RegisterDevice handles POST /api/v1/devices.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "device id is required")
		return
	}
	d, err := h.devices.RegisterDevice(r.Context(), p, req.ID, req.DisplayName)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

// RenameDevice handles PATCH /api/v1/devices/{id}.
func (h *Handler) RenameDevice(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req renameDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DisplayName == "" {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "display_name is required")
		return
	}
	d, err := h.devices.RenameDevice(r.Context(), p, mux.Vars(r)["id"], req.DisplayName)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// RemoveDevice handles DELETE /api/v1/devices/{id}.
func (h *Handler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if err := h.devices.RemoveDevice(r.Context(), p, mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Device removed"})
}

// SetRelay handles POST /api/v1/devices/{id}/relay.
func (h *Handler) SetRelay(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req relayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	d, err := h.devices.SetRelay(r.Context(), p, mux.Vars(r)["id"], req.On)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// DeviceHistory handles GET /api/v1/devices/{id}/history.
func (h *Handler) DeviceHistory(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	samples, err := h.devices.History(r.Context(), p, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, samples)
}

// FleetStats handles GET /api/v1/fleet/stats.
func (h *Handler) FleetStats(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	stats, err := h.devices.FleetStats(r.Context(), p)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
