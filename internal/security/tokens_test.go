package security

import (
	"errors"
	"testing"
	"time"
)

func newTestProvider(accessTTL, refreshTTL time.Duration) *TokenProvider {
	return NewTokenProvider([]byte("test-secret-0123456789"), "session-control", "community-api", accessTTL, refreshTTL)
}

func TestTokenProvider_AccessRoundTrip(t *testing.T) {
	p := newTestProvider(15*time.Minute, 168*time.Hour)

	token, exp, err := p.IssueAccess("user-1")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if token == "" {
		t.Fatal("access token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	uid, err := p.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if uid != "user-1" {
		t.Errorf("VerifyAccess subject = %q, want %q", uid, "user-1")
	}
}

func TestTokenProvider_RefreshRoundTrip(t *testing.T) {
	p := newTestProvider(15*time.Minute, 168*time.Hour)

	token, _, err := p.IssueRefresh("user-2")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	uid, err := p.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if uid != "user-2" {
		t.Errorf("VerifyRefresh subject = %q, want %q", uid, "user-2")
	}
}

func TestTokenProvider_ExpiredIsDistinct(t *testing.T) {
	p := newTestProvider(-1*time.Minute, -1*time.Minute)

	token, _, err := p.IssueAccess("user-3")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	_, err = p.VerifyAccess(token)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("VerifyAccess on expired token: want ErrExpiredToken, got %v", err)
	}

	refresh, _, err := p.IssueRefresh("user-3")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	_, err = p.VerifyRefresh(refresh)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("VerifyRefresh on expired token: want ErrExpiredToken, got %v", err)
	}
}

func TestTokenProvider_InvalidToken(t *testing.T) {
	p := newTestProvider(15*time.Minute, 168*time.Hour)

	if _, err := p.VerifyAccess("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyAccess malformed: want ErrInvalidToken, got %v", err)
	}
	if _, err := p.VerifyRefresh(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyRefresh empty: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_WrongSecret(t *testing.T) {
	p := newTestProvider(15*time.Minute, 168*time.Hour)
	other := NewTokenProvider([]byte("a-different-secret"), "session-control", "community-api", 15*time.Minute, 168*time.Hour)

	token, _, err := p.IssueAccess("user-4")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := other.VerifyAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyAccess with wrong secret: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_UseMismatch(t *testing.T) {
	p := newTestProvider(15*time.Minute, 168*time.Hour)

	access, _, err := p.IssueAccess("user-5")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.VerifyRefresh(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token on refresh path: want ErrInvalidToken, got %v", err)
	}

	refresh, _, err := p.IssueRefresh("user-5")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if _, err := p.VerifyAccess(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token on access path: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_IssuerAudience(t *testing.T) {
	p := newTestProvider(15*time.Minute, 168*time.Hour)
	otherIss := NewTokenProvider([]byte("test-secret-0123456789"), "someone-else", "community-api", 15*time.Minute, 168*time.Hour)
	otherAud := NewTokenProvider([]byte("test-secret-0123456789"), "session-control", "other-api", 15*time.Minute, 168*time.Hour)

	token, _, err := otherIss.IssueAccess("user-6")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.VerifyAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong issuer: want ErrInvalidToken, got %v", err)
	}

	token, _, err = otherAud.IssueAccess("user-6")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := p.VerifyAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong audience: want ErrInvalidToken, got %v", err)
	}
}
