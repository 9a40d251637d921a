package models

import "time"

// Audit action taxonomy. Append rejects anything outside this set.
const (
	ActionLogin         = "LOGIN"
	ActionLogout        = "LOGOUT"
	ActionDeviceControl = "DEVICE_CONTROL"
	ActionViewDevice    = "VIEW_DEVICE"
	ActionConfigChange  = "CONFIG_CHANGE"
)

// Audit outcomes. Failed attempts are recorded too, so security review can
// see attempted misuse.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditLogEntry is one append-only audit record. The recorder assigns ID and
// Timestamp server-side; caller-supplied values for either are ignored to
// prevent log forgery.
type AuditLogEntry struct {
	ID            int64     `json:"id" db:"id"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	UserID        string    `json:"user_id,omitempty" db:"user_id"`
	UserEmail     string    `json:"user_email,omitempty" db:"user_email"`
	Action        string    `json:"action" db:"action"`
	Resource      string    `json:"resource,omitempty" db:"resource"`
	Details       string    `json:"details,omitempty" db:"details"`
	SourceAddress string    `json:"source_address,omitempty" db:"source_address"`
	Outcome       string    `json:"outcome" db:"outcome"`
}
