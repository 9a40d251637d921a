package models

import "time"

// Session lifecycle states. Expired and Revoked are terminal.
const (
	SessionPendingSecondFactor = "pending_second_factor"
	SessionActive              = "active"
	SessionExpired             = "expired"
	SessionRevoked             = "revoked"
)

// Session is one authenticated (or partially authenticated) login. A session
// reaches Active only after every check the account requires has passed;
// accounts with a second factor enrolled start in PendingSecondFactor.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	State     string    `json:"state" db:"state"`
	IssuedAt  time.Time `json:"issued_at" db:"issued_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	IPAddress string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string    `json:"user_agent,omitempty" db:"user_agent"`
}

// IsExpired returns true once the session deadline has passed. Expiry is
// discovered lazily at authorization time; there is no background sweeper.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsTerminal returns true for states that permit no further transition.
func (s *Session) IsTerminal() bool {
	return s.State == SessionExpired || s.State == SessionRevoked
}
