package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"task-management-api/internal/session/domain"
)

// uniqueViolation is the Postgres error code for a unique constraint violation.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, ip_address, user_agent, revoked_at, created_at, updated_at`

// GetByTokenHash returns the session holding the given refresh token hash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.RefreshTokenSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM refresh_token_sessions WHERE refresh_token_hash = $1`, hash)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListActiveByUser returns the user's sessions that are neither revoked nor expired.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.RefreshTokenSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM refresh_token_sessions
		 WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now()
		 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RefreshTokenSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have ID set.
// Returns ErrHashConflict when the refresh token hash is already stored.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.RefreshTokenSession) error {
	return insertSession(ctx, r.db, s)
}

// Revoke stamps revoked_at on the session unless it is already revoked. Idempotent.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_token_sessions
		 SET revoked_at = now(), updated_at = now()
		 WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

// RevokeAllByUser revokes every non-revoked session of the user and returns the count affected.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_token_sessions
		 SET revoked_at = now(), updated_at = now()
		 WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByTokenHash hard-deletes the session with the given hash.
// Returns false when no row matched; that is not an error.
func (r *PostgresRepository) DeleteByTokenHash(ctx context.Context, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_token_sessions WHERE refresh_token_hash = $1`, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteExpired removes expired sessions, optionally scoped to one user.
// Safe to run concurrently and repeatedly; returns the count removed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, userID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if userID == "" {
		res, err = r.db.ExecContext(ctx,
			`DELETE FROM refresh_token_sessions WHERE expires_at <= now()`)
	} else {
		res, err = r.db.ExecContext(ctx,
			`DELETE FROM refresh_token_sessions WHERE user_id = $1 AND expires_at <= now()`, userID)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Rotate deletes the session identified by oldHash and inserts newSession in
// one transaction. The delete is conditional: when it affects zero rows a
// concurrent refresh already consumed the old session and the rotation
// aborts with ErrSessionRotated, leaving the store unchanged.
func (r *PostgresRepository) Rotate(ctx context.Context, oldHash string, newSession *domain.RefreshTokenSession) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM refresh_token_sessions WHERE refresh_token_hash = $1`, oldHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionRotated
	}
	if err := insertSession(ctx, tx, newSession); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, db execer, s *domain.RefreshTokenSession) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO refresh_token_sessions
		 (id, user_id, refresh_token_hash, expires_at, ip_address, user_agent, revoked_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt,
		s.IPAddress, s.UserAgent, timeToNullTime(s.RevokedAt), s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrHashConflict
		}
		return err
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.RefreshTokenSession, error) {
	var (
		s         domain.RefreshTokenSession
		revokedAt sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt,
		&s.IPAddress, &s.UserAgent, &revokedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.RevokedAt = nullTimeToPtr(revokedAt)
	return &s, nil
}

func timeToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeToPtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	return &n.Time
}
