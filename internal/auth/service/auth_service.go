package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"task-management-api/internal/audit"
	auditdomain "task-management-api/internal/audit/domain"
	"task-management-api/internal/security"
	sessiondomain "task-management-api/internal/session/domain"
	sessionrepo "task-management-api/internal/session/repository"
	userdomain "task-management-api/internal/user/domain"
)

// Sentinel errors for the auth service; the handler maps them to HTTP statuses.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrExpiredToken       = errors.New("refresh token expired")
	ErrRevokedToken       = errors.New("refresh token has been revoked")
	ErrAllSessionsRevoked = errors.New("suspicious activity detected; all sessions revoked, please login again")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
)

// UserDirectory is the minimal user lookup needed by the auth service.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByTokenHash(ctx context.Context, hash string) (*sessiondomain.RefreshTokenSession, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*sessiondomain.RefreshTokenSession, error)
	Create(ctx context.Context, s *sessiondomain.RefreshTokenSession) error
	Revoke(ctx context.Context, id string) error
	RevokeAllByUser(ctx context.Context, userID string) (int64, error)
	DeleteByTokenHash(ctx context.Context, hash string) (bool, error)
	DeleteExpired(ctx context.Context, userID string) (int64, error)
	Rotate(ctx context.Context, oldHash string, newSession *sessiondomain.RefreshTokenSession) error
}

// LoginResult holds the outcome of a successful Login.
type LoginResult struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	User            userdomain.PublicUser
}

// RefreshResult holds the outcome of a successful Refresh.
type RefreshResult struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// AuthService orchestrates login, refresh token rotation, and logout. It is
// stateless; all session state lives in the session repository.
type AuthService struct {
	users    UserDirectory
	sessions SessionRepo
	hasher   *security.Hasher
	codec    *security.TokenCodec
	hijack   HijackDetector
	audit    audit.AuditLogger
}

// NewAuthService returns an AuthService with the given dependencies.
// hijack may be nil, in which case the fingerprint policy is used.
// auditLogger may be nil to disable audit events.
func NewAuthService(
	users UserDirectory,
	sessions SessionRepo,
	hasher *security.Hasher,
	codec *security.TokenCodec,
	hijack HijackDetector,
	auditLogger audit.AuditLogger,
) *AuthService {
	if hijack == nil {
		hijack = FingerprintDetector{}
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		codec:    codec,
		hijack:   hijack,
		audit:    auditLogger,
	}
}

// Login authenticates with email/password, creates a refresh token session
// fingerprinted with the client's ip and userAgent, and returns both tokens.
// Unknown email and wrong password fail identically with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.logEvent(ctx, "", auditdomain.ActionLoginFailure, ip, userAgent, "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.logEvent(ctx, user.ID, auditdomain.ActionLoginFailure, ip, userAgent, "password mismatch")
		return nil, ErrInvalidCredentials
	}

	accessToken, accessExp, err := s.codec.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sess := &sessiondomain.RefreshTokenSession{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		ExpiresAt:        refreshExp,
		IPAddress:        ip,
		UserAgent:        userAgent,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	// Opportunistic cleanup; a failure here must not fail the login.
	if _, err := s.sessions.DeleteExpired(ctx, user.ID); err != nil {
		log.Printf("auth: cleanup of expired sessions for user %s: %v", user.ID, err)
	}

	s.logEvent(ctx, user.ID, auditdomain.ActionLoginSuccess, ip, userAgent, "")
	return &LoginResult{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExp,
		User:            user.Public(),
	}, nil
}

// Refresh validates the raw refresh token, rotates its session (the old
// session is deleted and a new one created, never mutated in place), and
// returns a fresh token pair. A fingerprint change revokes every session of
// the user and fails with ErrAllSessionsRevoked.
func (s *AuthService) Refresh(ctx context.Context, rawToken, ip, userAgent string) (*RefreshResult, error) {
	if rawToken == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.codec.VerifyRefresh(rawToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	hash := security.HashRefreshToken(rawToken)
	sess, err := s.sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Unknown token and reuse after rotation are indistinguishable.
		return nil, ErrInvalidToken
	}
	if sess.Revoked() {
		return nil, ErrRevokedToken
	}
	now := time.Now().UTC()
	if sess.Expired(now) {
		if _, err := s.sessions.DeleteByTokenHash(ctx, hash); err != nil {
			log.Printf("auth: delete expired session %s: %v", sess.ID, err)
		}
		return nil, ErrExpiredToken
	}

	if s.hijack.Suspicious(sess, ip, userAgent) {
		if _, err := s.sessions.RevokeAllByUser(ctx, sess.UserID); err != nil {
			return nil, err
		}
		s.logEvent(ctx, sess.UserID, auditdomain.ActionSecurityViolation, ip, userAgent, "fingerprint mismatch")
		return nil, ErrAllSessionsRevoked
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	accessToken, accessExp, err := s.codec.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, refreshExp, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	newSess := &sessiondomain.RefreshTokenSession{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		RefreshTokenHash: security.HashRefreshToken(refreshToken),
		ExpiresAt:        refreshExp,
		IPAddress:        ip,
		UserAgent:        userAgent,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Rotate(ctx, hash, newSess); err != nil {
		if errors.Is(err, sessionrepo.ErrSessionRotated) {
			// A concurrent refresh won the race; this token is spent.
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	s.logEvent(ctx, user.ID, auditdomain.ActionTokenRefresh, ip, userAgent, "")
	return &RefreshResult{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExp,
	}, nil
}

// Logout hard-deletes the session matching the raw refresh token. Deleting
// a session that no longer exists is a no-op, so logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, userID, rawToken string) error {
	if rawToken == "" {
		return nil
	}
	hash := security.HashRefreshToken(rawToken)
	deleted, err := s.sessions.DeleteByTokenHash(ctx, hash)
	if err != nil {
		return err
	}
	if deleted {
		s.logEvent(ctx, userID, auditdomain.ActionLogout, "", "", "")
	}
	return nil
}

// LogoutAll revokes every active session of the user ("sign out everywhere").
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	n, err := s.sessions.RevokeAllByUser(ctx, userID)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logEvent(ctx, userID, auditdomain.ActionLogoutAll, "", "", "")
	}
	return nil
}

// SessionInfo is the client-visible view of an active session.
type SessionInfo struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ListSessions returns the user's active sessions, newest first as ordered
// by the repository. Token hashes are never exposed.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]SessionInfo, error) {
	sessions, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, SessionInfo{
			ID:        sess.ID,
			IPAddress: sess.IPAddress,
			UserAgent: sess.UserAgent,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
		})
	}
	return out, nil
}

// RevokeSession revokes one session by id. The session must belong to the
// user; revoking another user's session fails with ErrSessionNotFound, the
// same as a session that does not exist.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	sessions, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.ID == sessionID {
			if err := s.sessions.Revoke(ctx, sessionID); err != nil {
				return err
			}
			s.logEvent(ctx, userID, auditdomain.ActionSessionRevoked, "", "", "session "+sessionID)
			return nil
		}
	}
	return ErrSessionNotFound
}

// VerifyAccessToken validates an access token and returns its claims. Used
// by the request authentication middleware.
func (s *AuthService) VerifyAccessToken(token string) (*security.AccessClaims, error) {
	claims, err := s.codec.VerifyAccess(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) logEvent(ctx context.Context, userID, action, ip, userAgent, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, userID, action, ip, userAgent, metadata)
}
