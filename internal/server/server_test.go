package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	authhandler "task-management-api/internal/auth/handler"
	authservice "task-management-api/internal/auth/service"
	"task-management-api/internal/security"
	sessiondomain "task-management-api/internal/session/domain"
	sessionrepo "task-management-api/internal/session/repository"
	userdomain "task-management-api/internal/user/domain"
)

type stubUsers struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	byEmail map[string]*userdomain.User
}

func (s *stubUsers) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id], nil
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byEmail[email], nil
}

func (s *stubUsers) Create(ctx context.Context, u *userdomain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u
	return nil
}

type stubSessions struct {
	mu     sync.Mutex
	byHash map[string]*sessiondomain.RefreshTokenSession
}

func (s *stubSessions) GetByTokenHash(ctx context.Context, hash string) (*sessiondomain.RefreshTokenSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byHash[hash]; ok {
		c := *sess
		return &c, nil
	}
	return nil, nil
}

func (s *stubSessions) Create(ctx context.Context, sess *sessiondomain.RefreshTokenSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[sess.RefreshTokenHash]; ok {
		return sessionrepo.ErrHashConflict
	}
	c := *sess
	s.byHash[c.RefreshTokenHash] = &c
	return nil
}

func (s *stubSessions) ListActiveByUser(ctx context.Context, userID string) ([]*sessiondomain.RefreshTokenSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var out []*sessiondomain.RefreshTokenSession
	for _, sess := range s.byHash {
		if sess.UserID == userID && sess.RevokedAt == nil && now.Before(sess.ExpiresAt) {
			c := *sess
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *stubSessions) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, sess := range s.byHash {
		if sess.ID == id && sess.RevokedAt == nil {
			t := now
			sess.RevokedAt = &t
		}
	}
	return nil
}

func (s *stubSessions) RevokeAllByUser(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var n int64
	for _, sess := range s.byHash {
		if sess.UserID == userID && sess.RevokedAt == nil {
			t := now
			sess.RevokedAt = &t
			n++
		}
	}
	return n, nil
}

func (s *stubSessions) DeleteByTokenHash(ctx context.Context, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[hash]; ok {
		delete(s.byHash, hash)
		return true, nil
	}
	return false, nil
}

func (s *stubSessions) DeleteExpired(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldHash string, newSession *sessiondomain.RefreshTokenSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[oldHash]; !ok {
		return sessionrepo.ErrSessionRotated
	}
	delete(s.byHash, oldHash)
	c := *newSession
	s.byHash[c.RefreshTokenHash] = &c
	return nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	users := &stubUsers{
		byID:    make(map[string]*userdomain.User),
		byEmail: make(map[string]*userdomain.User),
	}
	sessions := &stubSessions{byHash: make(map[string]*sessiondomain.RefreshTokenSession)}

	hasher := security.NewHasher(4)
	hash, err := hasher.Hash([]byte("secret-password"))
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_ = users.Create(context.Background(), &userdomain.User{
		ID:           "user-1",
		Email:        "bob@example.com",
		Name:         "Bob",
		PasswordHash: hash,
	})

	codec := security.NewTestTokenCodec()
	svc := authservice.NewAuthService(users, sessions, hasher, codec, nil, nil)
	auth := authhandler.NewHandler(svc, users, nil, 10*time.Hour, false)

	return New(Deps{
		Auth:     auth,
		Verifier: svc,
		Users:    users,
		Tracer:   tracenoop.NewTracerProvider().Tracer("test"),
		Meter:    metricnoop.NewMeterProvider().Meter("test"),
	})
}

func doLogin(t *testing.T, h http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"bob@example.com","password":"secret-password"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if out.Data.AccessToken == "" {
		t.Fatal("no access token in login response")
	}
	return out.Data.AccessToken
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newTestServer(t)
	for _, path := range []string{"/api/auth/logout", "/api/auth/logout-all"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d, want 401", path, rec.Code)
		}
	}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("/api/auth/me without token: status = %d, want 401", rec.Code)
	}
}

func TestAuthenticatedFlow(t *testing.T) {
	h := newTestServer(t)
	token := doLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/me status = %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout-all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout-all status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if got := rec.Body.String(); !strings.Contains(got, "ok") {
		t.Errorf("healthz body = %q", got)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
