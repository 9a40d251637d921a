package models

import "time"

// Device connectivity states.
const (
	ConnectivityOnline  = "online"
	ConnectivityOffline = "offline"
	ConnectivityError   = "error"
)

// Device is one smart plug. SecurityScore is derived by the monitor's
// evaluation pass and is never settable by a caller.
type Device struct {
	ID                string     `json:"id" db:"id"`
	DisplayName       string     `json:"display_name" db:"display_name"`
	Connectivity      string     `json:"connectivity" db:"connectivity"` // online | offline | error
	RelayOn           bool       `json:"relay_on" db:"relay_on"`
	Voltage           float64    `json:"voltage" db:"voltage"`
	Current           float64    `json:"current" db:"current"`
	Power             float64    `json:"power" db:"power"`
	EnergyWh          float64    `json:"energy_wh" db:"energy_wh"`
	LastSeen          *time.Time `json:"last_seen,omitempty" db:"last_seen"`
	FirmwareVersion   string     `json:"firmware_version" db:"firmware_version"`
	IsEncrypted       bool       `json:"is_encrypted" db:"is_encrypted"`
	IsAttested        bool       `json:"is_attested" db:"is_attested"`
	TamperDetected    bool       `json:"tamper_detected" db:"tamper_detected"`
	CertificateExpiry *time.Time `json:"certificate_expiry,omitempty" db:"certificate_expiry"`
	SecurityScore     int        `json:"security_score" db:"security_score"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// IsSecure reports whether the device counts as secure in fleet statistics.
func (d *Device) IsSecure() bool {
	return d.IsAttested && !d.TamperDetected
}

// PowerSample is one telemetry reading pushed by the ingestion path.
type PowerSample struct {
	Timestamp time.Time `json:"timestamp"`
	Voltage   float64   `json:"voltage"`
	Current   float64   `json:"current"`
	Power     float64   `json:"power"`
}

// FleetStats is a read-side aggregation over the device set; nothing here is
// stored state.
type FleetStats struct {
	TotalDevices  int     `json:"total_devices" db:"total_devices"`
	OnlineDevices int     `json:"online_devices" db:"online_devices"`
	TotalPower    float64 `json:"total_power" db:"total_power"`
	TotalEnergyWh float64 `json:"total_energy_wh" db:"total_energy_wh"`
	SecureDevices int     `json:"secure_devices" db:"secure_devices"`
}
