package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/voltguard/voltguard-backend/internal/models"
)

// CreateAlert inserts a new security alert.
func (r *SQLiteRepository) CreateAlert(ctx context.Context, a *models.SecurityAlert) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO security_alerts (id, device_id, kind, severity, message, created_at, resolved)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.DeviceID, a.Kind, a.Severity, a.Message, a.CreatedAt)
	return err
}

// GetAlert returns the alert, or nil when unknown.
func (r *SQLiteRepository) GetAlert(ctx context.Context, id string) (*models.SecurityAlert, error) {
	var a models.SecurityAlert
	err := r.db.GetContext(ctx, &a, `SELECT * FROM security_alerts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetUnresolvedAlertByKind returns the open alert of the given kind for a
// device, or nil. At most one such alert exists at any time (idempotent
// creation per kind while unresolved).
func (r *SQLiteRepository) GetUnresolvedAlertByKind(ctx context.Context, deviceID, kind string) (*models.SecurityAlert, error) {
	var a models.SecurityAlert
	err := r.db.GetContext(ctx, &a,
		`SELECT * FROM security_alerts WHERE device_id = ? AND kind = ? AND resolved = 0 LIMIT 1`,
		deviceID, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAlerts returns alerts, newest first. resolved filters when non-nil;
// deviceID filters when non-empty.
func (r *SQLiteRepository) ListAlerts(ctx context.Context, resolved *bool, deviceID string) ([]*models.SecurityAlert, error) {
	query := `SELECT * FROM security_alerts WHERE 1=1`
	args := []interface{}{}
	if resolved != nil {
		query += ` AND resolved = ?`
		args = append(args, *resolved)
	}
	if deviceID != "" {
		query += ` AND device_id = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY created_at DESC`

	var alerts []*models.SecurityAlert
	err := r.db.SelectContext(ctx, &alerts, query, args...)
	return alerts, err
}

// ResolveAlert marks the alert resolved. Resolving an already-resolved alert
// is a no-op; resolved never transitions back.
func (r *SQLiteRepository) ResolveAlert(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE security_alerts SET resolved = 1, resolved_at = ? WHERE id = ? AND resolved = 0`,
		time.Now().UTC(), id)
	return err
}
