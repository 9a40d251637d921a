package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/voltguard/voltguard-backend/internal/models"
)

// CreateDevice registers a new device.
func (r *SQLiteRepository) CreateDevice(ctx context.Context, d *models.Device) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	query := `
		INSERT INTO devices (id, display_name, connectivity, relay_on, voltage, current, power,
			energy_wh, last_seen, firmware_version, is_encrypted, is_attested, tamper_detected,
			certificate_expiry, security_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.DisplayName, d.Connectivity, d.RelayOn, d.Voltage, d.Current, d.Power,
		d.EnergyWh, d.LastSeen, d.FirmwareVersion, d.IsEncrypted, d.IsAttested, d.TamperDetected,
		d.CertificateExpiry, d.SecurityScore, d.CreatedAt, d.UpdatedAt)
	return err
}

// GetDevice returns the device, or nil when unknown.
func (r *SQLiteRepository) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	var d models.Device
	err := r.db.GetContext(ctx, &d, `SELECT * FROM devices WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDevices returns every device ordered by device id.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]*models.Device, error) {
	var devices []*models.Device
	err := r.db.SelectContext(ctx, &devices, `SELECT * FROM devices ORDER BY id ASC`)
	return devices, err
}

// UpdateTelemetry stores the latest sample and accumulated energy for a device.
func (r *SQLiteRepository) UpdateTelemetry(ctx context.Context, id string, s models.PowerSample, energyWh float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET voltage = ?, current = ?, power = ?, energy_wh = ?, last_seen = ?,
		    connectivity = ?, updated_at = ?
		WHERE id = ?`,
		s.Voltage, s.Current, s.Power, energyWh, s.Timestamp.UTC(),
		models.ConnectivityOnline, time.Now().UTC(), id)
	return err
}

// DeviceStatus is the security/connectivity attribute set reported by the
// ingestion path.
type DeviceStatus struct {
	Connectivity      string
	FirmwareVersion   string
	IsEncrypted       bool
	IsAttested        bool
	TamperDetected    bool
	CertificateExpiry *time.Time
}

// UpdateDeviceStatus stores reported device attributes.
func (r *SQLiteRepository) UpdateDeviceStatus(ctx context.Context, id string, st DeviceStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices
		SET connectivity = ?, firmware_version = ?, is_encrypted = ?, is_attested = ?,
		    tamper_detected = ?, certificate_expiry = ?, updated_at = ?
		WHERE id = ?`,
		st.Connectivity, st.FirmwareVersion, st.IsEncrypted, st.IsAttested,
		st.TamperDetected, st.CertificateExpiry, time.Now().UTC(), id)
	return err
}

// SetRelayState flips the relay flag after a confirmed command.
func (r *SQLiteRepository) SetRelayState(ctx context.Context, id string, on bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET relay_on = ?, updated_at = ? WHERE id = ?`,
		on, time.Now().UTC(), id)
	return err
}

// SetSecurityScore stores the derived score. Only the evaluation pass calls
// this; the score is never caller-settable.
func (r *SQLiteRepository) SetSecurityScore(ctx context.Context, id string, score int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET security_score = ?, updated_at = ? WHERE id = ?`,
		score, time.Now().UTC(), id)
	return err
}

// RenameDevice updates the display name.
func (r *SQLiteRepository) RenameDevice(ctx context.Context, id, displayName string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE devices SET display_name = ?, updated_at = ? WHERE id = ?`,
		displayName, time.Now().UTC(), id)
	return err
}

// DeleteDevice removes a device and its alerts.
func (r *SQLiteRepository) DeleteDevice(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM security_alerts WHERE device_id = ?`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	return err
}

// GetFleetStats aggregates fleet statistics over the device set.
func (r *SQLiteRepository) GetFleetStats(ctx context.Context) (*models.FleetStats, error) {
	var stats models.FleetStats
	query := `
		SELECT
			COUNT(*) AS total_devices,
			COALESCE(SUM(CASE WHEN connectivity = 'online' THEN 1 ELSE 0 END), 0) AS online_devices,
			COALESCE(SUM(CASE WHEN connectivity = 'online' THEN power ELSE 0 END), 0) AS total_power,
			COALESCE(SUM(energy_wh), 0) AS total_energy_wh,
			COALESCE(SUM(CASE WHEN is_attested = 1 AND tamper_detected = 0 THEN 1 ELSE 0 END), 0) AS secure_devices
		FROM devices
	`
	err := r.db.GetContext(ctx, &stats, query)
	return &stats, err
}
