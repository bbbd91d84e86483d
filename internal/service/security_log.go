// internal/service/security_log.go
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"taskdeck/pkg/security"
)

// SecurityLogger writes security events to the structured audit log.
// High-severity events are logged at warn level so ops can alert on them.
type SecurityLogger struct {
	log *slog.Logger
}

// NewSecurityLogger creates a new security logger
func NewSecurityLogger(log *slog.Logger) *SecurityLogger {
	return &SecurityLogger{
		log: log.With("component", "security"),
	}
}

func (sl *SecurityLogger) event(ctx context.Context, eventType, description, severity string, attrs ...any) {
	attrs = append(attrs, "event_type", eventType, "severity", severity)
	switch severity {
	case security.SeverityHigh, security.SeverityCritical:
		sl.log.WarnContext(ctx, description, attrs...)
	default:
		sl.log.InfoContext(ctx, description, attrs...)
	}
}

// Convenience methods for common security events

func (sl *SecurityLogger) LogLoginSuccess(ctx context.Context, userID uuid.UUID, ip string) {
	sl.event(ctx, security.EventTypeLoginSuccess, "user logged in", security.SeverityLow,
		"user_id", userID, "ip", ip)
}

func (sl *SecurityLogger) LogLoginFailed(ctx context.Context, login, reason, ip string) {
	sl.event(ctx, security.EventTypeLoginFailed, "login failed", security.SeverityMedium,
		"login", login, "reason", reason, "ip", ip)
}

func (sl *SecurityLogger) LogAccountLocked(ctx context.Context, userID uuid.UUID, reason string) {
	sl.event(ctx, security.EventTypeAccountLocked, "account locked", security.SeverityHigh,
		"user_id", userID, "reason", reason)
}

func (sl *SecurityLogger) LogAccountUnlocked(ctx context.Context, count int64) {
	sl.event(ctx, security.EventTypeAccountUnlocked, "expired lockouts reset", security.SeverityLow,
		"count", count)
}

func (sl *SecurityLogger) LogTokenRefreshed(ctx context.Context, userID uuid.UUID) {
	sl.event(ctx, security.EventTypeTokenRefreshed, "refresh token rotated", security.SeverityLow,
		"user_id", userID)
}

func (sl *SecurityLogger) LogLogout(ctx context.Context, userID uuid.UUID) {
	sl.event(ctx, security.EventTypeLogout, "user logged out", security.SeverityLow,
		"user_id", userID)
}

func (sl *SecurityLogger) LogRegistered(ctx context.Context, userID uuid.UUID, email, ip string) {
	sl.event(ctx, security.EventTypeRegistered, "user registered", security.SeverityLow,
		"user_id", userID, "email", email, "ip", ip)
}

func (sl *SecurityLogger) LogSuspiciousActivity(ctx context.Context, userID uuid.UUID, description string) {
	sl.event(ctx, security.EventTypeSuspiciousActivity, description, security.SeverityMedium,
		"user_id", userID)
}
