package service

import (
	sessiondomain "task-management-api/internal/session/domain"
)

// HijackDetector decides whether a refresh attempt looks like it comes from
// a stolen token. Kept behind an interface so the policy can be softened
// (e.g. IP-only, or allowlisted proxy ranges) without touching the engine.
type HijackDetector interface {
	Suspicious(s *sessiondomain.RefreshTokenSession, ip, userAgent string) bool
}

// FingerprintDetector flags any change of client IP or User-Agent since the
// session was issued. Coarse and prone to false positives on mobile
// networks, but a single mismatch revoking every session trades convenience
// for containment.
type FingerprintDetector struct{}

// Suspicious reports whether ip or userAgent differs from the session's
// recorded fingerprint.
func (FingerprintDetector) Suspicious(s *sessiondomain.RefreshTokenSession, ip, userAgent string) bool {
	return s.IPChanged(ip) || s.UserAgentChanged(userAgent)
}
