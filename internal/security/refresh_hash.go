package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken returns the SHA-256 hash of the raw refresh token,
// hex-encoded. Only this digest is ever persisted; a leaked sessions table
// does not yield usable tokens.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshTokenHashEqual recomputes the hash of the provided raw token and
// compares it to the stored digest in constant time. Inputs of mismatched
// length are a non-match, never a panic.
func RefreshTokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashRefreshToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
