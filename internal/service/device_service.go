package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voltguard/voltguard-backend/internal/audit"
	"github.com/voltguard/voltguard-backend/internal/auth"
	"github.com/voltguard/voltguard-backend/internal/models"
	"github.com/voltguard/voltguard-backend/internal/pkg/metrics"
	"github.com/voltguard/voltguard-backend/internal/repository"
)

// DeviceConfig tunes the monitor's anomaly detection.
type DeviceConfig struct {
	AnomalySigma      float64
	AnomalyCooldown   time.Duration
	AnomalyMinSamples int
	TelemetryWindow   int
}

// DeviceService is the device security monitor. It owns device registration,
// relay control, telemetry ingestion with anomaly detection, and the derived
// security score and alert lifecycle.
type DeviceService struct {
	repo        *repository.SQLiteRepository
	audit       *audit.Recorder
	dispatcher  RelayDispatcher
	broadcaster EventBroadcaster
	log         *slog.Logger
	cfg         DeviceConfig

	locks stripedLocks

	mu      sync.Mutex
	windows map[string]*telemetryWindow
}

// NewDeviceService creates the monitor. broadcaster may be nil.
func NewDeviceService(repo *repository.SQLiteRepository, rec *audit.Recorder, dispatcher RelayDispatcher, broadcaster EventBroadcaster, log *slog.Logger, cfg DeviceConfig) *DeviceService {
	if cfg.AnomalySigma <= 0 {
		cfg.AnomalySigma = 3.0
	}
	if cfg.AnomalyCooldown <= 0 {
		cfg.AnomalyCooldown = time.Hour
	}
	if cfg.AnomalyMinSamples <= 0 {
		cfg.AnomalyMinSamples = 8
	}
	if cfg.TelemetryWindow <= 0 {
		cfg.TelemetryWindow = 64
	}
	return &DeviceService{
		repo:        repo,
		audit:       rec,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		log:         log,
		cfg:         cfg,
		windows:     make(map[string]*telemetryWindow),
	}
}

func (s *DeviceService) window(deviceID string) *telemetryWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[deviceID]
	if !ok {
		w = newTelemetryWindow(s.cfg.TelemetryWindow)
		s.windows[deviceID] = w
	}
	return w
}

func (s *DeviceService) broadcast(eventType string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(eventType, payload)
	}
}

// RegisterDevice adds a new device to the fleet. Admin only.
func (s *DeviceService) RegisterDevice(ctx context.Context, p auth.Principal, id, displayName string) (*models.Device, error) {
	if !auth.CanManageDevices(p.Role) {
		return nil, ErrForbidden
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty device id", ErrConflict)
	}
	existing, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: device %s already registered", ErrConflict, id)
	}
	d := &models.Device{
		ID:           id,
		DisplayName:  displayName,
		Connectivity: models.ConnectivityOffline,
	}
	// nothing is known about the device yet, so the score reflects an
	// unattested, unencrypted posture until the first status report
	d.SecurityScore = securityScore(d, time.Now().UTC())
	if err := s.repo.CreateDevice(ctx, d); err != nil {
		return nil, err
	}
	s.auditConfig(ctx, p, "device:"+id, "registered device", models.OutcomeSuccess)
	s.broadcast("device_registered", d)
	return d, nil
}

// RenameDevice updates a device's display name. Admin only.
func (s *DeviceService) RenameDevice(ctx context.Context, p auth.Principal, id, displayName string) (*models.Device, error) {
	if !auth.CanManageDevices(p.Role) {
		return nil, ErrForbidden
	}
	d, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: device %s", ErrNotFound, id)
	}
	if err := s.repo.RenameDevice(ctx, id, displayName); err != nil {
		return nil, err
	}
	d.DisplayName = displayName
	s.auditConfig(ctx, p, "device:"+id, "renamed device", models.OutcomeSuccess)
	s.broadcast("device_updated", d)
	return d, nil
}

// RemoveDevice deletes a device and its alerts. Admin only.
func (s *DeviceService) RemoveDevice(ctx context.Context, p auth.Principal, id string) error {
	if !auth.CanManageDevices(p.Role) {
		return ErrForbidden
	}
	d, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("%w: device %s", ErrNotFound, id)
	}
	if err := s.repo.DeleteDevice(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.windows, id)
	s.mu.Unlock()
	s.auditConfig(ctx, p, "device:"+id, "removed device", models.OutcomeSuccess)
	s.broadcast("device_removed", map[string]string{"id": id})
	return nil
}

// ListDevices returns the fleet, ordered by device id, and records the view.
func (s *DeviceService) ListDevices(ctx context.Context, p auth.Principal) ([]*models.Device, error) {
	devices, err := s.repo.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	s.auditView(ctx, p, "devices")
	return devices, nil
}

// GetDevice returns one device and records the view.
func (s *DeviceService) GetDevice(ctx context.Context, p auth.Principal, id string) (*models.Device, error) {
	d, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: device %s", ErrNotFound, id)
	}
	s.auditView(ctx, p, "device:"+id)
	return d, nil
}

// History returns the trailing power samples for a device, oldest first.
func (s *DeviceService) History(ctx context.Context, p auth.Principal, id string) ([]models.PowerSample, error) {
	d, err := s.repo.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: device %s", ErrNotFound, id)
	}
	mu := s.locks.forKey(id)
	mu.Lock()
	defer mu.Unlock()
	return s.window(id).snapshot(), nil
}

// FleetStats aggregates live fleet statistics.
func (s *DeviceService) FleetStats(ctx context.Context, p auth.Principal) (*models.FleetStats, error) {
	return s.repo.GetFleetStats(ctx)
}

// SetRelay turns a plug on or off. The caller needs the control capability;
// a forbidden attempt is still recorded in the audit log. Commands against
// devices that are not online fail without touching the audit log, since no
// control action was ever attempted against the hardware.
func (s *DeviceService) SetRelay(ctx context.Context, p auth.Principal, deviceID string, on bool) (*models.Device, error) {
	resource := "device:" + deviceID
	if !auth.CanControlDevices(p.Role) {
		metrics.RelayCommandsTotal.WithLabelValues("forbidden").Inc()
		s.auditControl(ctx, p, resource, fmt.Sprintf("relay %s denied: role %s", onOff(on), p.Role), models.OutcomeFailure)
		return nil, ErrForbidden
	}

	mu := s.locks.forKey(deviceID)
	mu.Lock()
	defer mu.Unlock()

	d, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: device %s", ErrNotFound, deviceID)
	}
	if d.Connectivity != models.ConnectivityOnline {
		metrics.RelayCommandsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: device %s is %s", ErrDeviceUnavailable, deviceID, d.Connectivity)
	}

	if err := s.dispatcher.DispatchRelay(ctx, deviceID, on); err != nil {
		metrics.RelayCommandsTotal.WithLabelValues("failed").Inc()
		s.auditControl(ctx, p, resource, fmt.Sprintf("relay %s failed: %v", onOff(on), err), models.OutcomeFailure)
		return nil, fmt.Errorf("%w: %v", ErrCommandFailed, err)
	}

	if err := s.repo.SetRelayState(ctx, deviceID, on); err != nil {
		return nil, err
	}
	d.RelayOn = on
	metrics.RelayCommandsTotal.WithLabelValues("success").Inc()
	s.auditControl(ctx, p, resource, "relay "+onOff(on), models.OutcomeSuccess)
	s.broadcast("device_updated", d)
	return d, nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// RecordTelemetry ingests one power sample from a device. It accumulates
// energy from the previous reading, checks the sample against the rolling
// window for anomalies, marks the device online, and re-derives the score and
// posture alerts. Certificate expiry is clock-driven, so posture can change
// between status reports while telemetry keeps flowing.
func (s *DeviceService) RecordTelemetry(ctx context.Context, deviceID string, sample models.PowerSample) (*models.Device, error) {
	mu := s.locks.forKey(deviceID)
	mu.Lock()
	defer mu.Unlock()

	d, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: device %s", ErrNotFound, deviceID)
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	energy := d.EnergyWh
	if d.LastSeen != nil {
		if dt := sample.Timestamp.Sub(*d.LastSeen); dt > 0 {
			energy += d.Power * dt.Hours()
		}
	}

	// Check against the trailing window before this sample joins it, so a
	// spike is measured against normal behavior rather than itself.
	w := s.window(deviceID)
	if w.isAnomalous(sample.Power, s.cfg.AnomalySigma, s.cfg.AnomalyMinSamples) {
		if err := s.maybeRaiseAnomaly(ctx, d, sample, w); err != nil {
			return nil, err
		}
	}
	w.push(sample)

	if err := s.repo.UpdateTelemetry(ctx, deviceID, sample, energy); err != nil {
		return nil, err
	}
	d.Voltage = sample.Voltage
	d.Current = sample.Current
	d.Power = sample.Power
	d.EnergyWh = energy
	ts := sample.Timestamp
	d.LastSeen = &ts
	d.Connectivity = models.ConnectivityOnline

	if err := s.evaluateSecurity(ctx, d); err != nil {
		return nil, err
	}

	metrics.TelemetrySamplesTotal.Inc()
	s.broadcast("telemetry", d)
	return d, nil
}

func (s *DeviceService) maybeRaiseAnomaly(ctx context.Context, d *models.Device, sample models.PowerSample, w *telemetryWindow) error {
	if !w.lastAnomaly.IsZero() && sample.Timestamp.Sub(w.lastAnomaly) < s.cfg.AnomalyCooldown {
		return nil
	}
	existing, err := s.repo.GetUnresolvedAlertByKind(ctx, d.ID, models.AlertAnomaly)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	mean, _, _ := w.stats()
	alert := &models.SecurityAlert{
		DeviceID: d.ID,
		Kind:     models.AlertAnomaly,
		Severity: models.SeverityMedium,
		Message:  fmt.Sprintf("power anomaly on device %s: %.1fW against a %.1fW average", d.ID, sample.Power, mean),
	}
	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		return err
	}
	w.lastAnomaly = sample.Timestamp
	metrics.SecurityAlertsCreatedTotal.WithLabelValues(models.AlertAnomaly).Inc()
	s.log.Warn("anomaly alert raised", "device", d.ID, "power", sample.Power)
	s.broadcast("alert_created", alert)
	return nil
}

// UpdateStatus ingests a device status report, then re-derives the security
// score and posture alerts from the new state.
func (s *DeviceService) UpdateStatus(ctx context.Context, deviceID string, st repository.DeviceStatus) (*models.Device, error) {
	mu := s.locks.forKey(deviceID)
	mu.Lock()
	defer mu.Unlock()

	d, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: device %s", ErrNotFound, deviceID)
	}
	if err := s.repo.UpdateDeviceStatus(ctx, deviceID, st); err != nil {
		return nil, err
	}
	d.Connectivity = st.Connectivity
	d.FirmwareVersion = st.FirmwareVersion
	d.IsEncrypted = st.IsEncrypted
	d.IsAttested = st.IsAttested
	d.TamperDetected = st.TamperDetected
	d.CertificateExpiry = st.CertificateExpiry

	if err := s.evaluateSecurity(ctx, d); err != nil {
		return nil, err
	}
	s.broadcast("device_updated", d)
	return d, nil
}

// evaluateSecurity recomputes the score and raises posture alerts. Alert
// creation is idempotent per kind: while an unresolved alert of a kind exists
// for the device, the same condition never creates a second one. Caller holds
// the device lock.
func (s *DeviceService) evaluateSecurity(ctx context.Context, d *models.Device) error {
	now := time.Now().UTC()
	score := securityScore(d, now)
	if err := s.repo.SetSecurityScore(ctx, d.ID, score); err != nil {
		return err
	}
	d.SecurityScore = score

	for _, cond := range postureConditions {
		if !cond.active(d, now) {
			continue
		}
		existing, err := s.repo.GetUnresolvedAlertByKind(ctx, d.ID, cond.kind)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		alert := &models.SecurityAlert{
			DeviceID: d.ID,
			Kind:     cond.kind,
			Severity: cond.severity,
			Message:  cond.message(d),
		}
		if err := s.repo.CreateAlert(ctx, alert); err != nil {
			return err
		}
		metrics.SecurityAlertsCreatedTotal.WithLabelValues(cond.kind).Inc()
		s.log.Warn("security alert raised", "device", d.ID, "kind", cond.kind, "severity", cond.severity)
		s.broadcast("alert_created", alert)
	}
	return nil
}

// ListAlerts returns alerts, optionally filtered by resolution state and
// device.
func (s *DeviceService) ListAlerts(ctx context.Context, p auth.Principal, resolved *bool, deviceID string) ([]*models.SecurityAlert, error) {
	return s.repo.ListAlerts(ctx, resolved, deviceID)
}

// ResolveAlert marks an alert resolved. The capability check runs before the
// existence check so that callers without it cannot probe for alert ids.
// Resolving an already-resolved alert is a no-op.
func (s *DeviceService) ResolveAlert(ctx context.Context, p auth.Principal, alertID string) (*models.SecurityAlert, error) {
	if !auth.CanResolveAlerts(p.Role) {
		return nil, ErrForbidden
	}
	a, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: alert %s", ErrNotFound, alertID)
	}
	if !a.Resolved {
		if err := s.repo.ResolveAlert(ctx, alertID); err != nil {
			return nil, err
		}
		a, err = s.repo.GetAlert(ctx, alertID)
		if err != nil {
			return nil, err
		}
		// A concurrent device removal deletes its alerts between the
		// resolve and the re-fetch.
		if a == nil {
			return nil, fmt.Errorf("%w: alert %s", ErrNotFound, alertID)
		}
		s.auditConfig(ctx, p, "alert:"+alertID, "resolved alert "+a.Kind, models.OutcomeSuccess)
		s.broadcast("alert_resolved", a)
	}
	return a, nil
}

func (s *DeviceService) auditControl(ctx context.Context, p auth.Principal, resource, details, outcome string) {
	s.append(ctx, &models.AuditLogEntry{
		UserID:    p.UserID,
		UserEmail: p.Email,
		Action:    models.ActionDeviceControl,
		Resource:  resource,
		Details:   details,
		Outcome:   outcome,
	})
}

func (s *DeviceService) auditConfig(ctx context.Context, p auth.Principal, resource, details, outcome string) {
	s.append(ctx, &models.AuditLogEntry{
		UserID:    p.UserID,
		UserEmail: p.Email,
		Action:    models.ActionConfigChange,
		Resource:  resource,
		Details:   details,
		Outcome:   outcome,
	})
}

func (s *DeviceService) auditView(ctx context.Context, p auth.Principal, resource string) {
	s.append(ctx, &models.AuditLogEntry{
		UserID:    p.UserID,
		UserEmail: p.Email,
		Action:    models.ActionViewDevice,
		Resource:  resource,
		Outcome:   models.OutcomeSuccess,
	})
}

func (s *DeviceService) append(ctx context.Context, e *models.AuditLogEntry) {
	if err := s.audit.Append(ctx, e); err != nil {
		s.log.Error("audit append failed", "action", e.Action, "error", err)
	}
}
