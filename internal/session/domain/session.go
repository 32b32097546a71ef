package domain

import "time"

// RefreshTokenSession tracks a single refresh token's validity and the
// client fingerprint captured when it was issued. The raw token is never
// stored; only its SHA-256 hash.
type RefreshTokenSession struct {
	ID               string
	UserID           string
	RefreshTokenHash string // unique across all sessions
	ExpiresAt        time.Time
	IPAddress        string
	UserAgent        string
	RevokedAt        *time.Time // nil when not revoked; never cleared once set
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Revoked reports whether the session has been explicitly revoked.
func (s *RefreshTokenSession) Revoked() bool {
	return s.RevokedAt != nil
}

// Expired reports whether the session is past its expiry at the given time.
func (s *RefreshTokenSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Valid reports whether the session is neither revoked nor expired.
func (s *RefreshTokenSession) Valid(now time.Time) bool {
	return !s.Revoked() && !s.Expired(now)
}

// IPChanged reports whether the given client IP differs from the one
// recorded on the session.
func (s *RefreshTokenSession) IPChanged(ip string) bool {
	return s.IPAddress != ip
}

// UserAgentChanged reports whether the given user agent differs from the
// one recorded on the session.
func (s *RefreshTokenSession) UserAgentChanged(userAgent string) bool {
	return s.UserAgent != userAgent
}
