package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/voltguard/voltguard-backend/internal/audit"
	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/service"
)

// Handler manages HTTP request handlers.
type Handler struct {
	sessions  *service.SessionService
	devices   *service.DeviceService
	recorder  *audit.Recorder
	tracker   *auth.LoginTracker
	jwtSecret string
}

// NewHandler creates a new HTTP handler.
func NewHandler(sessions *service.SessionService, devices *service.DeviceService, recorder *audit.Recorder, jwtSecret string) *Handler {
	return &Handler{
		sessions:  sessions,
		devices:   devices,
		recorder:  recorder,
		tracker:   auth.NewLoginTracker(),
		jwtSecret: jwtSecret,
	}
}

// SetupRoutes configures API routes under /api/v1.
func SetupRoutes(router *mux.Router, h *Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Session authority
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/2fa", h.TwoFactor).Methods(http.MethodPost)
	api.HandleFunc("/auth/2fa/enroll", h.Enroll2FA).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)

	// Fleet
	api.HandleFunc("/devices", h.ListDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices", h.RegisterDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}", h.GetDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", h.RenameDevice).Methods(http.MethodPatch)
	api.HandleFunc("/devices/{id}", h.RemoveDevice).Methods(http.MethodDelete)
	api.HandleFunc("/devices/{id}/relay", h.SetRelay).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/history", h.DeviceHistory).Methods(http.MethodGet)
	api.HandleFunc("/fleet/stats", h.FleetStats).Methods(http.MethodGet)

	// Security monitor
	api.HandleFunc("/alerts", h.ListAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/resolve", h.ResolveAlert).Methods(http.MethodPost)

	// Audit
	api.HandleFunc("/audit", h.QueryAudit).Methods(http.MethodGet)

	// Device-side ingestion
	api.HandleFunc("/ingest/{deviceId}/telemetry", h.IngestTelemetry).Methods(http.MethodPost)
	api.HandleFunc("/ingest/{deviceId}/status", h.IngestStatus).Methods(http.MethodPost)
}

// principal returns the authenticated principal or writes a 401. The auth
// middleware populates it for every non-public path; the nil check guards
// direct handler tests.
func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		respondError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return auth.Principal{}, false
	}
	return *p, true
}
