// Package sessiontoken verifies the session tokens issued by the
// external authentication provider. This service never mints tokens; it
// only checks the signature and standard claims and extracts the subject
// user id.
package sessiontoken

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gamecrate-api/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrNoSubject    = errors.New("session token has no subject")
)

// Verifier validates HS256 session tokens against the shared secret
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	parser   *jwt.Parser
}

// NewVerifier creates a verifier from the auth configuration
func NewVerifier(cfg *config.AuthConfig) *Verifier {
	return &Verifier{
		secret:   []byte(cfg.SessionSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithLeeway(cfg.Leeway),
			jwt.WithExpirationRequired(),
		),
	}
}

// VerifySubject parses and validates a token and returns its subject
// user id
func (v *Verifier) VerifySubject(tokenString string) (string, error) {
	token, err := v.parser.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrNoSubject
	}
	return subject, nil
}
