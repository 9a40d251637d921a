package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/voltguard/voltguard-backend/internal/models"
)

// CreateSession inserts a new session row.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, state, issued_at, expires_at, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.State, s.IssuedAt, s.ExpiresAt, s.IPAddress, s.UserAgent)
	return err
}

// GetSession returns the session, or nil when unknown.
func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.db.GetContext(ctx, &s, `SELECT * FROM sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSessionState moves a session to the given state.
func (r *SQLiteRepository) UpdateSessionState(ctx context.Context, id, state string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET state = ? WHERE id = ?`, state, id)
	return err
}

// ActivateSession transitions a session to Active with a fresh deadline.
func (r *SQLiteRepository) ActivateSession(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, expires_at = ? WHERE id = ?`,
		models.SessionActive, expiresAt.UTC(), id)
	return err
}
