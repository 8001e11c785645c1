package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestIssueThenParseRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	token, err := svc.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Fatalf("unexpected subject: %q", claims.UserID)
	}
}

func TestParseExpiredToken(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	issued := time.Now()
	svc.now = func() time.Time { return issued }
	token, err := svc.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := svc.Parse(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)
	token, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := verifier.Parse(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		if _, err := svc.Parse(token); !errors.Is(err, ErrMalformed) {
			t.Fatalf("token %q: expected ErrMalformed, got %v", token, err)
		}
	}
}

func TestParseRejectsTamperedPayload(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	token, err := svc.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	tampered := token[:len(token)-4] + "AAAA"
	if _, err := svc.Parse(tampered); err == nil {
		t.Fatal("Parse accepted a tampered token")
	}
}
