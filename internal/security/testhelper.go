package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "unit-test-access-secret-0123456789abcdef"
	testRefreshSecret = "unit-test-refresh-secret-fedcba9876543210"
)

// NewTestTokenCodec returns a TokenCodec with fixed test secrets and short
// lifetimes. For unit tests only.
func NewTestTokenCodec() *TokenCodec {
	return NewTokenCodec(
		[]byte(testAccessSecret),
		[]byte(testRefreshSecret),
		"test-issuer",
		2*time.Hour,
		10*time.Hour,
	)
}
