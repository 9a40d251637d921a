package repository

import (
	"context"
	"time"

	"github.com/voltguard/voltguard-backend/internal/models"
)

// AuditFilter narrows an audit query. Zero values mean "no constraint".
type AuditFilter struct {
	Action   string
	UserID   string
	Resource string
	Since    time.Time
	Until    time.Time
	Limit    int
}

// AppendAuditLog inserts an entry and fills in its assigned monotonic id.
// There is no update or delete counterpart: the log is append-only.
func (r *SQLiteRepository) AppendAuditLog(ctx context.Context, e *models.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (timestamp, user_id, user_email, action, resource, details, source_address, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		e.Timestamp, e.UserID, e.UserEmail, e.Action, e.Resource, e.Details, e.SourceAddress, e.Outcome)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// QueryAuditLogs returns matching entries in timestamp-ascending order.
func (r *SQLiteRepository) QueryAuditLogs(ctx context.Context, f AuditFilter) ([]*models.AuditLogEntry, error) {
	query := `SELECT * FROM audit_log WHERE 1=1`
	args := []interface{}{}
	if f.Action != "" {
		query += ` AND action = ?`
		args = append(args, f.Action)
	}
	if f.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Resource != "" {
		query += ` AND resource = ?`
		args = append(args, f.Resource)
	}
	if !f.Since.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, f.Until.UTC())
	}
	query += ` ORDER BY timestamp ASC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var entries []*models.AuditLogEntry
	err := r.db.SelectContext(ctx, &entries, query, args...)
	return entries, err
}

// CountAuditLogsByAction is a test and health helper.
func (r *SQLiteRepository) CountAuditLogsByAction(ctx context.Context, action string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM audit_log WHERE action = ?`, action)
	return n, err
}
