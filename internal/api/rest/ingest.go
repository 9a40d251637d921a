package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/repository"
)

type statusReport struct {
	Connectivity      string     `json:"connectivity"`
	FirmwareVersion   string     `json:"firmware_version"`
	IsEncrypted       bool       `json:"is_encrypted"`
	IsAttested        bool       `json:"is_attested"`
	TamperDetected    bool       `json:"tamper_detected"`
	CertificateExpiry *time.Time `json:"certificate_expiry,omitempty"`
}

// IngestTelemetry handles POST /api/v1/ingest/{deviceId}/telemetry: one
// power sample pushed from a plug.
func (h *Handler) IngestTelemetry(w http.ResponseWriter, r *http.Request) {
	var sample models.PowerSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid telemetry payload")
		return
	}
	d, err := h.devices.RecordTelemetry(r.Context(), mux.Vars(r)["deviceId"], sample)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// IngestStatus handles POST /api/v1/ingest/{deviceId}/status: connectivity
// and security posture reported by the plug. The security score and any
// posture alerts are re-derived from the report.
func (h *Handler) IngestStatus(w http.ResponseWriter, r *http.Request) {
	var report statusReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid status payload")
		return
	}
	if report.Connectivity == "" {
		report.Connectivity = models.ConnectivityOnline
	}
	switch report.Connectivity {
	case models.ConnectivityOnline, models.ConnectivityOffline, models.ConnectivityError:
	default:
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "Unknown connectivity state")
		return
	}
	d, err := h.devices.UpdateStatus(r.Context(), mux.Vars(r)["deviceId"], repository.DeviceStatus{
		Connectivity:      report.Connectivity,
		FirmwareVersion:   report.FirmwareVersion,
		IsEncrypted:       report.IsEncrypted,
		IsAttested:        report.IsAttested,
		TamperDetected:    report.TamperDetected,
		CertificateExpiry: report.CertificateExpiry,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}
