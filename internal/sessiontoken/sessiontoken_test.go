package sessiontoken

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gamecrate-api/internal/config"
)

func testConfig() *config.AuthConfig {
	return &config.AuthConfig{
		SessionSecret: "test-secret",
		Issuer:        "gamecrate-auth",
		Audience:      "gamecrate-api",
		Leeway:        30 * time.Second,
	}
}

func mintToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func validClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    "gamecrate-auth",
		Audience:  jwt.ClaimStrings{"gamecrate-api"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
}

func TestVerifySubject(t *testing.T) {
	verifier := NewVerifier(testConfig())

	subject, err := verifier.VerifySubject(mintToken(t, "test-secret", validClaims()))
	if err != nil {
		t.Fatalf("VerifySubject: %v", err)
	}
	if subject != "u1" {
		t.Fatalf("subject = %q, want u1", subject)
	}
}

func TestVerifySubjectWrongSecret(t *testing.T) {
	verifier := NewVerifier(testConfig())

	_, err := verifier.VerifySubject(mintToken(t, "other-secret", validClaims()))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifySubjectWrongIssuer(t *testing.T) {
	verifier := NewVerifier(testConfig())

	claims := validClaims()
	claims.Issuer = "someone-else"
	_, err := verifier.VerifySubject(mintToken(t, "test-secret", claims))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifySubjectExpired(t *testing.T) {
	verifier := NewVerifier(testConfig())

	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err := verifier.VerifySubject(mintToken(t, "test-secret", claims))
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifySubjectMissingSubject(t *testing.T) {
	verifier := NewVerifier(testConfig())

	claims := validClaims()
	claims.Subject = ""
	_, err := verifier.VerifySubject(mintToken(t, "test-secret", claims))
	if !errors.Is(err, ErrNoSubject) {
		t.Fatalf("expected ErrNoSubject, got %v", err)
	}
}
