package auth_test

import (
	"testing"
	"time"

	"github.com/foodlink/userhub/internal/auth"
)

func TestIssueAndVerifySession(t *testing.T) {
	m := auth.NewManager("unit-test-secret", 24*time.Hour)

	token, err := m.IssueSession("user-123")

	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	claims, err := m.VerifySession(token)

	if err != nil {
		t.Fatalf("verify session: %v", err)
	}

	if claims.UserID != "user-123" {
		t.Fatalf("got user id %q, want %q", claims.UserID, "user-123")
	}

	if claims.TokenType != "session" {
		t.Fatalf("got token type %q, want session", claims.TokenType)
	}

	ttl := time.Until(claims.ExpiresAt.Time)

	if ttl < 23*time.Hour || ttl > 24*time.Hour {
		t.Fatalf("expiry window off: %v", ttl)
	}
}

func TestVerifySession_RejectsWrongSecret(t *testing.T) {
	issuer := auth.NewManager("secret-a", time.Hour)
	verifier := auth.NewManager("secret-b", time.Hour)

	token, err := issuer.IssueSession("user-123")

	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	_, err = verifier.VerifySession(token)

	if err == nil {
		t.Fatalf("expected verification to fail across secrets")
	}
}

func TestVerifySession_RejectsExpiredToken(t *testing.T) {
	m := auth.NewManager("unit-test-secret", -time.Minute)

	token, err := m.IssueSession("user-123")

	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	_, err = m.VerifySession(token)

	if err == nil {
		t.Fatalf("expected an expired token to be rejected")
	}
}

func TestVerifySession_RejectsGarbage(t *testing.T) {
	m := auth.NewManager("unit-test-secret", time.Hour)

	_, err := m.VerifySession("definitely-not-a-jwt")

	if err == nil {
		t.Fatalf("expected garbage input to be rejected")
	}
}
