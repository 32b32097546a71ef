package repository

import (
	"context"
	"errors"

	"task-management-api/internal/session/domain"
)

var (
	// ErrHashConflict is returned by Create when another session already
	// holds the same refresh token hash.
	ErrHashConflict = errors.New("refresh token hash already exists")
	// ErrSessionRotated is returned by Rotate when the old session was
	// already deleted or rotated by a concurrent refresh.
	ErrSessionRotated = errors.New("session already rotated")
)

// Repository defines persistence for refresh token sessions.
type Repository interface {
	// GetByTokenHash returns the session holding the given hash, or nil.
	GetByTokenHash(ctx context.Context, hash string) (*domain.RefreshTokenSession, error)
	// ListActiveByUser returns the user's non-revoked, non-expired sessions.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.RefreshTokenSession, error)
	// Create persists a new session; ErrHashConflict on a duplicate hash.
	Create(ctx context.Context, s *domain.RefreshTokenSession) error
	// Revoke stamps RevokedAt on the session. Revoking an already-revoked
	// session is a no-op, not an error.
	Revoke(ctx context.Context, id string) error
	// RevokeAllByUser revokes every non-revoked session of the user and
	// returns the number affected.
	RevokeAllByUser(ctx context.Context, userID string) (int64, error)
	// DeleteByTokenHash hard-deletes the session with the given hash.
	// Returns false, not an error, when no row matched.
	DeleteByTokenHash(ctx context.Context, hash string) (bool, error)
	// DeleteExpired removes expired sessions, optionally scoped to one
	// user (userID empty means all users). Safe to run repeatedly.
	DeleteExpired(ctx context.Context, userID string) (int64, error)
	// Rotate atomically replaces the session identified by oldHash with
	// newSession. If the old session no longer exists the rotation aborts
	// with ErrSessionRotated and nothing is written.
	Rotate(ctx context.Context, oldHash string, newSession *domain.RefreshTokenSession) error
}
