package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/voltguard/voltguard-backend/internal/models"
)

// CreateUser inserts a new user. Email must be unique.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (id, email, password_hash, role, totp_secret, created_at, failed_login_count)
		VALUES (?, ?, ?, ?, ?, ?, 0)
	`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.PasswordHash, u.Role, u.TOTPSecret, u.CreatedAt)
	return err
}

// GetUserByEmail returns the user, or nil when no such user exists.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID returns the user, or nil when no such user exists.
func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CountUsers returns the number of users.
func (r *SQLiteRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`)
	return n, err
}

// SetTOTPSecret updates second-factor enrollment. Empty secret disables it.
func (r *SQLiteRepository) SetTOTPSecret(ctx context.Context, userID, secret string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET totp_secret = ? WHERE id = ?`, secret, userID)
	return err
}

// TOTPSecret returns the user's enrolled TOTP secret (auth.SecretSource).
func (r *SQLiteRepository) TOTPSecret(ctx context.Context, userID string) (string, error) {
	var secret string
	err := r.db.GetContext(ctx, &secret, `SELECT totp_secret FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return secret, err
}

// IncrementFailedLogin bumps the consecutive failure counter.
func (r *SQLiteRepository) IncrementFailedLogin(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_login_count = failed_login_count + 1 WHERE id = ?`, userID)
	return err
}

// ResetFailedLogin clears the failure counter and stamps last_login.
func (r *SQLiteRepository) ResetFailedLogin(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET failed_login_count = 0, locked_until = NULL, last_login = ? WHERE id = ?`,
		time.Now().UTC(), userID)
	return err
}

// LockUser locks the account until the given time.
func (r *SQLiteRepository) LockUser(ctx context.Context, userID string, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET locked_until = ? WHERE id = ?`, until.UTC(), userID)
	return err
}
