package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	now := time.Now()
	claims := Claims{
		Sub:  "admin",
		Name: "Front Desk",
		Role: "admin",
		ID:   "jti-1",
		Iat:  now.Unix(),
		Exp:  now.Add(1 * time.Hour).Unix(),
	}
	secret := "test-secret"

	token, err := SignHS256(claims, secret)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parsed, err := ParseAndVerifyHS256(token, secret, now)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Role != claims.Role || parsed.ID != claims.ID {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}
	if _, err := ParseAndVerifyHS256(token, "wrong-secret", now); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
}

func TestHS256RejectsExpired(t *testing.T) {
	now := time.Now()
	token, err := SignHS256(Claims{Sub: "admin", Iat: now.Unix(), Exp: now.Add(time.Minute).Unix()}, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	if _, err := ParseAndVerifyHS256(token, "s", now.Add(2*time.Minute)); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHS256RejectsTamperedPayload(t *testing.T) {
	now := time.Now()
	token, err := SignHS256(Claims{Sub: "clerk", Role: "admin", Exp: now.Add(time.Hour).Unix()}, "s")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	parts := strings.Split(token, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"root","role":"admin","exp":9999999999}`))
	if _, err := ParseAndVerifyHS256(parts[0]+"."+forged+"."+parts[2], "s", now); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	password := "pass123"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !IsPasswordHash(hash) {
		t.Fatalf("expected %q to be recognised as a bcrypt hash", hash)
	}
	if err := VerifyPassword(hash, password); err != nil {
		t.Fatalf("VerifyPassword should succeed: %v", err)
	}
	if err := VerifyPassword(hash, "wrong-pass"); err != ErrPasswordMismatch {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if IsPasswordHash("password123") {
		t.Fatal("plain text must not pass as a hash")
	}
}
