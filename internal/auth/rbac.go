package auth

// Roles. These are capabilities, not a strict hierarchy: an auditor can read
// the audit log but cannot control devices.
const (
	RoleAdmin   = "admin"
	RoleUser    = "user"
	RoleViewer  = "viewer"
	RoleAuditor = "auditor"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleUser, RoleViewer, RoleAuditor:
		return true
	}
	return false
}

// CanControlDevices reports whether the role may issue relay commands.
func CanControlDevices(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// CanManageDevices reports whether the role may register, rename, or remove
// devices.
func CanManageDevices(role string) bool {
	return role == RoleAdmin
}

// CanResolveAlerts reports whether the role may resolve security alerts.
func CanResolveAlerts(role string) bool {
	return role == RoleAdmin
}

// CanViewAudit reports whether the role may query the audit log.
func CanViewAudit(role string) bool {
	return role == RoleAdmin || role == RoleAuditor
}
