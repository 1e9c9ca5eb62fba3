package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/forgeharbor/auth-go/internal/keys"
)

// TokenVerifier turns a raw token into a Principal or rejects it.
type TokenVerifier interface {
	Verify(raw string) (Principal, error)
}

// Verifier checks signature, issuer, audience and the [iat, exp] window
// against a public key resident in memory. It performs no I/O and is safe for
// concurrent use.
type Verifier struct {
	settings Settings
	key      *rsa.PublicKey
	now      func() time.Time
}

type VerifierOption func(*Verifier)

// WithVerifierClock overrides time.Now.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(settings Settings, kp *keys.KeyPair, opts ...VerifierOption) *Verifier {
	v := &Verifier{settings: settings, now: time.Now}
	if kp != nil {
		v.key = kp.Public
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var _ TokenVerifier = (*Verifier)(nil)

// expiryLeeway keeps a token valid at exactly exp. Claim times are whole
// seconds.
const expiryLeeway = time.Second

// Verify never reveals which check failed: every rejection wraps
// ErrInvalidToken, with the cause kept for server-side logging.
func (v *Verifier) Verify(raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, ErrUnauthenticated
	}
	if v.key == nil {
		return Principal{}, fmt.Errorf("%w: no verification key loaded", ErrInvalidToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.settings.Issuer),
		jwt.WithAudience(v.settings.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(expiryLeeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// The leeway also widens the iat check, so the lower bound is enforced
	// here. WithIssuedAt skips a missing iat.
	if claims.IssuedAt == nil {
		return Principal{}, fmt.Errorf("%w: missing iat", ErrInvalidToken)
	}
	if v.now().Before(claims.IssuedAt.Time) {
		return Principal{}, fmt.Errorf("%w: used before issued", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	return Principal{UserID: claims.Subject, Email: claims.Email}, nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, errors.New("alg not allowed")
	}
	return v.key, nil
}
