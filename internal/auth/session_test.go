package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionRoundTrip(t *testing.T) {
	svc := NewService(testStore(t), "test-secret")
	ctx := context.Background()

	token, err := svc.IssueSession(ctx, 42, "jo@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	principal, err := svc.VerifySession(ctx, token)
	if err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}
	if principal.UserID != 42 {
		t.Errorf("UserID = %d, want 42", principal.UserID)
	}
	if principal.Email != "jo@example.com" {
		t.Errorf("Email = %q, want jo@example.com", principal.Email)
	}
}

func TestSessionExpired(t *testing.T) {
	svc := NewService(testStore(t), "test-secret")
	ctx := context.Background()

	token, err := svc.IssueSession(ctx, 1, "jo@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	if _, err := svc.VerifySession(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifySession on expired token = %v, want ErrInvalidCredentials", err)
	}
}

func TestSessionWrongSecret(t *testing.T) {
	st := testStore(t)
	issuer := NewService(st, "secret-one")
	verifier := NewService(st, "secret-two")
	ctx := context.Background()

	token, err := issuer.IssueSession(ctx, 1, "jo@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	if _, err := verifier.VerifySession(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifySession with wrong secret = %v, want ErrInvalidCredentials", err)
	}
}

func TestSessionGarbage(t *testing.T) {
	svc := NewService(testStore(t), "test-secret")
	ctx := context.Background()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.VerifySession(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("VerifySession(%q) = %v, want ErrInvalidCredentials", token, err)
		}
	}
}
