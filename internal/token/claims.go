// Package token issues and verifies RS256 identity tokens. The Verifier is the
// single check sequence shared by the issuing service and every relying party.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthenticated = errors.New("missing bearer credential")
	ErrInvalidToken    = errors.New("invalid token")
	ErrSigningFailed   = errors.New("token signing failed")
)

// Claims is the identity assertion. Subject carries the user_id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Principal is the authenticated identity handed to protected handlers.
type Principal struct {
	UserID string
	Email  string
}

// Settings is the trust domain shared by Issuer and Verifier.
type Settings struct {
	Issuer   string
	Audience string
	TTL      time.Duration
}
