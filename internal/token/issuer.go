package token

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forgeharbor/auth-go/internal/keys"
)

// Subject is what the Issuer needs to know about a user.
type Subject struct {
	UserID string
	Email  string
}

type Issuer struct {
	settings Settings
	key      *rsa.PrivateKey
	kid      string
	now      func() time.Time
}

type IssuerOption func(*Issuer)

// WithIssuerClock overrides time.Now.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(settings Settings, kp *keys.KeyPair, opts ...IssuerOption) *Issuer {
	i := &Issuer{settings: settings, now: time.Now}
	if kp != nil && kp.Private != nil {
		i.key = kp.Private
		i.kid = keys.Thumbprint(&kp.Private.PublicKey)
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue signs a token for s valid from now for the configured TTL and
// returns it with that TTL.
func (i *Issuer) Issue(s Subject) (string, time.Duration, error) {
	if i.key == nil {
		return "", 0, fmt.Errorf("%w: no private key loaded", ErrSigningFailed)
	}

	now := i.now()
	claims := Claims{
		Email: s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    i.settings.Issuer,
			Audience:  jwt.ClaimStrings{i.settings.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.settings.TTL)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = i.kid

	signed, err := t.SignedString(i.key)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return signed, i.settings.TTL, nil
}
