package security

import (
	"testing"
	"time"
)

func TestTokenCodec_IssueAndVerifyAccess(t *testing.T) {
	c := NewTestTokenCodec()

	token, exp, err := c.IssueAccess("u1", "a@x.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" {
		t.Fatal("access token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	claims, err := c.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@x.com" {
		t.Errorf("VerifyAccess: got userId=%q email=%q", claims.UserID, claims.Email)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Errorf("TokenType = %q, want %q", claims.TokenType, TokenTypeAccess)
	}
	if claims.Issuer != "test-issuer" {
		t.Errorf("Issuer = %q, want test-issuer", claims.Issuer)
	}
}

func TestTokenCodec_IssueAndVerifyRefresh(t *testing.T) {
	c := NewTestTokenCodec()

	token, exp, err := c.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if token == "" {
		t.Fatal("refresh token empty")
	}
	if time.Until(exp) < 9*time.Hour {
		t.Errorf("refresh expiry %v, want ~10h out", exp)
	}

	claims, err := c.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", claims.UserID)
	}
	if claims.TokenType != TokenTypeRefresh {
		t.Errorf("TokenType = %q, want %q", claims.TokenType, TokenTypeRefresh)
	}
}

func TestTokenCodec_TokensNeverRepeat(t *testing.T) {
	c := NewTestTokenCodec()

	// Same user, same instant: the jti must keep the tokens distinct,
	// since the session store keys on the token hash.
	r1, _, err := c.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	r2, _, err := c.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if r1 == r2 {
		t.Fatal("two refresh tokens for the same user are identical")
	}
	if HashRefreshToken(r1) == HashRefreshToken(r2) {
		t.Fatal("two refresh tokens share a hash")
	}

	claims, err := c.VerifyRefresh(r1)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.ID == "" {
		t.Error("refresh token has no jti")
	}

	a1, _, err := c.IssueAccess("u1", "a@x.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	a2, _, err := c.IssueAccess("u1", "a@x.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if a1 == a2 {
		t.Fatal("two access tokens for the same user are identical")
	}
}

func TestTokenCodec_VerifyMalformed(t *testing.T) {
	c := NewTestTokenCodec()
	if _, err := c.VerifyAccess("not-a-token"); err != ErrInvalidToken {
		t.Errorf("VerifyAccess malformed: want ErrInvalidToken, got %v", err)
	}
	if _, err := c.VerifyRefresh("not-a-token"); err != ErrInvalidToken {
		t.Errorf("VerifyRefresh malformed: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_WrongKindRejected(t *testing.T) {
	c := NewTestTokenCodec()

	access, _, err := c.IssueAccess("u1", "a@x.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	refresh, _, err := c.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}

	// Signed with independent secrets, so a refresh token must not
	// verify as an access token or the other way around.
	if _, err := c.VerifyAccess(refresh); err != ErrInvalidToken {
		t.Errorf("VerifyAccess(refresh token): want ErrInvalidToken, got %v", err)
	}
	if _, err := c.VerifyRefresh(access); err != ErrInvalidToken {
		t.Errorf("VerifyRefresh(access token): want ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_WrongSecretRejected(t *testing.T) {
	c := NewTestTokenCodec()
	other := NewTokenCodec([]byte("other-access"), []byte("other-refresh"), "test-issuer", time.Hour, time.Hour)

	token, _, err := c.IssueAccess("u1", "a@x.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := other.VerifyAccess(token); err != ErrInvalidToken {
		t.Errorf("VerifyAccess with wrong secret: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_WrongIssuerRejected(t *testing.T) {
	c := NewTestTokenCodec()
	impostor := NewTokenCodec([]byte(testAccessSecret), []byte(testRefreshSecret), "other-issuer", time.Hour, time.Hour)

	token, _, err := impostor.IssueAccess("u1", "a@x.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := c.VerifyAccess(token); err != ErrInvalidToken {
		t.Errorf("VerifyAccess with wrong issuer: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenCodec_ExpiredRejected(t *testing.T) {
	c := NewTokenCodec([]byte(testAccessSecret), []byte(testRefreshSecret), "test-issuer", -time.Minute, -time.Minute)

	access, _, err := c.IssueAccess("u1", "a@x.com")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := c.VerifyAccess(access); err != ErrInvalidToken {
		t.Errorf("VerifyAccess expired: want ErrInvalidToken, got %v", err)
	}

	refresh, _, err := c.IssueRefresh("u1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := c.VerifyRefresh(refresh); err != ErrInvalidToken {
		t.Errorf("VerifyRefresh expired: want ErrInvalidToken, got %v", err)
	}
}
