package domain

import "time"

// AuditLog is one recorded security-relevant event, e.g. a forced logout.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Reason    string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the policy engine.
const (
	ActionForceLogout        = "force_logout"
	ActionDeviceLimitEvicted = "device_limit_evicted"
	ActionSuspiciousActivity = "suspicious_activity"
)
