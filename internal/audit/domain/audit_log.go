package domain

import "time"

// Actions recorded by the auth code paths.
const (
	ActionLoginSuccess      = "login_success"
	ActionLoginFailure      = "login_failure"
	ActionTokenRefresh      = "token_refresh"
	ActionSecurityViolation = "security_violation"
	ActionLogout            = "logout"
	ActionLogoutAll         = "logout_all"
	ActionSessionRevoked    = "session_revoked"
)

// AuditLog is one security-relevant event (login, refresh, revocation).
type AuditLog struct {
	ID        string
	UserID    string // empty for failed logins with unknown email
	Action    string
	IP        string
	UserAgent string
	Metadata  string
	CreatedAt time.Time
}
