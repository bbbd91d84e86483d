// pkg/security/events.go
package security

// EventType names for security audit log entries.
const (
	EventTypeLoginSuccess       = "login_success"
	EventTypeLoginFailed        = "login_failed"
	EventTypeAccountLocked      = "account_locked"
	EventTypeAccountUnlocked    = "account_unlocked"
	EventTypeTokenRefreshed     = "token_refreshed"
	EventTypeLogout             = "logout"
	EventTypeRegistered         = "user_registered"
	EventTypeSuspiciousActivity = "suspicious_activity"
)

// Severity levels for security events.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)
