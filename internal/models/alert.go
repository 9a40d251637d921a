package models

import "time"

// Alert kinds produced by the evaluation pass.
const (
	AlertTamper             = "tamper"
	AlertAttestationFailed  = "attestation_failed"
	AlertCertificateExpired = "certificate_expired"
	AlertAnomaly            = "anomaly"
)

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// SecurityAlert is created only by the monitor's evaluation pass. Alerts are
// never deleted; resolution is a one-way transition set by an admin.
type SecurityAlert struct {
	ID         string     `json:"id" db:"id"`
	DeviceID   string     `json:"device_id" db:"device_id"`
	Kind       string     `json:"kind" db:"kind"`
	Severity   string     `json:"severity" db:"severity"`
	Message    string     `json:"message" db:"message"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	Resolved   bool       `json:"resolved" db:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}
