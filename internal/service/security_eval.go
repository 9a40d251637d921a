package service

import (
	"fmt"
	"time"

	"github.com/voltguard/voltguard-backend/internal/models"
)

// security score deductions, applied to a base of 100
const (
	deductTamper      = 30
	deductNotAttested = 20
	deductExpiredCert = 15
	deductUnencrypted = 10
)

// securityScore derives the device's score from its posture fields at the
// given instant. The result is clamped to [0, 100].
func securityScore(d *models.Device, now time.Time) int {
	score := 100
	if d.TamperDetected {
		score -= deductTamper
	}
	if !d.IsAttested {
		score -= deductNotAttested
	}
	if certificateExpired(d, now) {
		score -= deductExpiredCert
	}
	if !d.IsEncrypted {
		score -= deductUnencrypted
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func certificateExpired(d *models.Device, now time.Time) bool {
	return d.CertificateExpiry != nil && d.CertificateExpiry.Before(now)
}

// alertCondition is one posture check that can raise an alert.
type alertCondition struct {
	kind     string
	severity string
	message  func(d *models.Device) string
	active   func(d *models.Device, now time.Time) bool
}

var postureConditions = []alertCondition{
	{
		kind:     models.AlertTamper,
		severity: models.SeverityCritical,
		message: func(d *models.Device) string {
			return fmt.Sprintf("tamper detected on device %s", d.ID)
		},
		active: func(d *models.Device, _ time.Time) bool { return d.TamperDetected },
	},
	{
		kind:     models.AlertAttestationFailed,
		severity: models.SeverityHigh,
		message: func(d *models.Device) string {
			return fmt.Sprintf("device %s failed firmware attestation", d.ID)
		},
		active: func(d *models.Device, _ time.Time) bool { return !d.IsAttested },
	},
	{
		kind:     models.AlertCertificateExpired,
		severity: models.SeverityMedium,
		message: func(d *models.Device) string {
			return fmt.Sprintf("device %s has an expired certificate", d.ID)
		},
		active: certificateExpired,
	},
}
