package models

import "time"

// User is a dashboard identity. Email and role are immutable after creation;
// only the second-factor enrollment may change.
type User struct {
	ID               string     `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	Role             string     `json:"role" db:"role"` // admin | user | viewer | auditor
	TOTPSecret       string     `json:"-" db:"totp_secret"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	LastLogin        *time.Time `json:"last_login,omitempty" db:"last_login"`
	FailedLoginCount int        `json:"-" db:"failed_login_count"`
	LockedUntil      *time.Time `json:"-" db:"locked_until"`
}

// TwoFactorEnabled reports whether the user has a second factor enrolled.
func (u *User) TwoFactorEnabled() bool {
	return u.TOTPSecret != ""
}

// IsLocked returns true while the account is locked out after repeated
// failed logins.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}
