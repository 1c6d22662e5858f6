// Package auth verifies identity-provider access tokens. Sign-up, login and
// credential storage live entirely with the provider; this service only checks
// that a bearer token is valid and which user it maps to.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marius4lui/toolbox-links/internal/errx"
)

// User is the authenticated principal resolved from a bearer token.
type User struct {
	ID    string
	Email string
}

// Verifier validates an access token and resolves it to a user.
// Implementations should be safe for concurrent use.
type Verifier interface {
	Verify(ctx context.Context, token string) (User, error)
}

// claims is the subset of provider token claims this service reads.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// jwtVerifier validates HS256-signed provider tokens locally.
type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a Verifier checking HS256 signatures with secret.
func NewJWTVerifier(secret string) Verifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(ctx context.Context, token string) (User, error) {
	const op = "auth.jwtVerifier.Verify"

	if token == "" {
		return User{}, errx.E(op, errx.Unauthorized, errors.New("empty token"))
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return User{}, errx.E(op, errx.Unauthorized, err)
	}
	if !parsed.Valid {
		return User{}, errx.E(op, errx.Unauthorized, errors.New("invalid token"))
	}
	if c.Subject == "" {
		return User{}, errx.E(op, errx.Unauthorized, errors.New("token missing subject"))
	}

	return User{ID: c.Subject, Email: c.Email}, nil
}
